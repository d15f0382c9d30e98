package netlist

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/spicesweep/internal/textenc"
)

func TestParse_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"R01=1k\nR02=2k\n",
		"* title\nV1 in 0 5\n.param a=1 b = 2\n+ c=3\n.tran 0 1m 0 10u\n.end\n",
		"* windows\r\nR1 a b {R}\r\n.param R=1k\r\n.op\r\n",
		"\n\n  \t\n",
	}

	for _, text := range texts {
		d := Parse(text, "")
		assert.Equal(t, text, d.Serialize())
	}
}

func TestLoadFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"simple_resistance_circuit.net", "photoresistor_array.net"} {
		path := filepath.Join("testdata", name)
		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		d, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, string(raw), d.Serialize(), name)
		assert.Equal(t, name, d.Name())
	}
}

func TestLoadFile_Parameters(t *testing.T) {
	d, err := LoadFile(filepath.Join("testdata", "photoresistor_array.net"))
	require.NoError(t, err)

	params := d.Parameters()
	assert.Len(t, params, 4)
	assert.Equal(t, "1k", params["R00"].Value)
	assert.Equal(t, "2k", params["R10"].Value)
	assert.Equal(t, 11, params["R10"].Line)
	assert.Equal(t, []string{"R00", "R01", "R10", "R11"}, d.Names())
	assert.Empty(t, d.Duplicates())

	dir := d.Directive()
	require.NotNil(t, dir)
	assert.Equal(t, DirectiveTran, dir.Kind)
	assert.Equal(t, "0 10m 0 10u", dir.Params)
	assert.Equal(t, 8, dir.Line)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.net"))

	var malformed *MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLoad_ReadFailure(t *testing.T) {
	_, err := Load(failingReader{}, "x.net")

	var malformed *MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "x.net", malformed.Path)
}

func TestLoad_InvalidUTF8(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{'R', '1', 0xC3, 0x28, '=', '1'}), "")

	var malformed *MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.ErrorIs(t, err, textenc.ErrInvalidText)
}

func TestChangeParameter(t *testing.T) {
	d := Parse("R01=1k\nR02=2k\n", "")

	require.NoError(t, d.ChangeParameter("R01", "5k"))

	assert.Equal(t, []string{"R01=5k", "R02=2k"}, d.Lines())
	assert.Equal(t, "5k", d.Parameters()["R01"].Value)
	assert.Equal(t, "2k", d.Parameters()["R02"].Value)
}

func TestChangeParameter_Unknown(t *testing.T) {
	d := Parse("R01=1k\nR02=2k\n", "")

	err := d.ChangeParameter("R99", "5k")

	var unknown *UnknownParameterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "R99", unknown.Name)
	assert.Equal(t, []string{"R01=1k", "R02=2k"}, d.Lines())
	assert.Equal(t, "1k", d.Parameters()["R01"].Value)
}

func TestChangeParameter_PreservesRestOfLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		param string
		value string
		want  string
	}{
		{"prefix names", ".param R1=1k R10=2k", "R1", "5k", ".param R1=5k R10=2k"},
		{"prefix names reversed", ".param R10=2k R1=1k", "R1", "5k", ".param R10=2k R1=5k"},
		{"spaced", ".param  Rload1 = 3k   ; load", "Rload1", "10k", ".param  Rload1=10k   ; load"},
		{"continuation", "+ a=1 +b = 2", "b", "7", "+ a=1 +b=7"},
		{"instance", "M1 d g s s NMOS W=10u L=1u", "L", "180n", "M1 d g s s NMOS W=10u L=180n"},
		{"longer value", "x=1 y=2 z=3", "y", "1.234meg", "x=1 y=1.234meg z=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.line+"\n", "")
			require.NoError(t, d.ChangeParameter(tt.param, tt.value))
			assert.Equal(t, tt.want, d.Lines()[0])

			// ranges of the remaining statements must still be exact
			for _, s := range ScanLine(d.Lines()[0], 0) {
				got, ok := d.Parameter(s.Name)
				require.True(t, ok)
				assert.Equal(t, s, got)
			}
		})
	}
}

func TestChangeParameter_RepeatedEdits(t *testing.T) {
	d := Parse(".param a=1 b=2 c=3\n", "")

	require.NoError(t, d.ChangeParameter("a", "100"))
	require.NoError(t, d.ChangeParameter("c", "300"))
	require.NoError(t, d.ChangeParameter("b", "2"))
	require.NoError(t, d.ChangeParameter("a", "1"))

	assert.Equal(t, ".param a=1 b=2 c=300", d.Lines()[0])
}

func TestChangeParameter_CaseInsensitive(t *testing.T) {
	d := Parse(".param Rload0=2k\n", "")

	require.NoError(t, d.ChangeParameter("RLOAD0", "4k"))
	assert.Equal(t, ".param Rload0=4k", d.Lines()[0])

	s, ok := d.Parameter("rload0")
	require.True(t, ok)
	assert.Equal(t, "4k", s.Value)
}

func TestChangeParameter_AmbiguousCase(t *testing.T) {
	d := Parse(".param rx=1 RX=2\n", "")

	err := d.ChangeParameter("Rx", "3")
	var unknown *UnknownParameterError
	assert.ErrorAs(t, err, &unknown)

	require.NoError(t, d.ChangeParameter("RX", "3"))
	assert.Equal(t, ".param rx=1 RX=3", d.Lines()[0])
}

func TestChangeParameter_InvalidValue(t *testing.T) {
	d := Parse("R01=1k\n", "")

	for _, v := range []string{"", "5 k", "1k\n"} {
		err := d.ChangeParameter("R01", v)
		var invalid *InvalidValueError
		assert.ErrorAs(t, err, &invalid, "value %q", v)
	}
	assert.Equal(t, []string{"R01=1k"}, d.Lines())
}

func TestChangeParameter_Duplicates(t *testing.T) {
	d := Parse(".param X=1\nR1 a b {X}\n.param X=2 Y=3\n", "")

	assert.Equal(t, []string{"X"}, d.Duplicates())
	assert.Equal(t, "2", d.Parameters()["X"].Value)
	assert.Len(t, d.Occurrences("X"), 2)

	require.NoError(t, d.ChangeParameter("X", "9"))
	assert.Equal(t, []string{".param X=9", "R1 a b {X}", ".param X=9 Y=3"}, d.Lines())
}

func TestParse_WarnsOnDuplicates(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Parse(".param X=1\n.param X=2\n", "dup.net", WithLogger(log))

	assert.Contains(t, buf.String(), `"parameter":"X"`)
	assert.Contains(t, buf.String(), `"occurrences":2`)
}

func TestReparseAfterMutation(t *testing.T) {
	d, err := LoadFile(filepath.Join("testdata", "photoresistor_array.net"))
	require.NoError(t, err)

	require.NoError(t, d.ChangeParameter("R01", "5k"))
	require.NoError(t, d.ChangeParameter("R11", "10k"))

	again := Parse(d.Serialize(), d.Path())
	assert.Equal(t, d.Parameters(), again.Parameters())
	assert.Equal(t, d.Directive(), again.Directive())
}

func TestChangeParameters(t *testing.T) {
	path := filepath.Join("sims", "Photoresistor_Array.net")
	src := Parse(".param R00=1k R01=1k\n.tran 1m\n", path)

	derived, err := src.ChangeParameters([]Assignment{{"R00", "1k"}, {"R01", "5k"}}, "")
	require.NoError(t, err)

	assert.Equal(t, ".param R00=1k R01=5k", derived.Lines()[0])
	assert.Equal(t, filepath.Join("sims", "Photoresistor_Array_new.net"), derived.Path())
	assert.Equal(t, "Photoresistor_Array_new.net", derived.Name())

	// source untouched
	assert.Equal(t, ".param R00=1k R01=1k", src.Lines()[0])
	assert.Equal(t, path, src.Path())
	assert.Equal(t, "1k", src.Parameters()["R01"].Value)

	named, err := src.ChangeParameters(Assignments(map[string]string{"R00": "2k"}), filepath.Join("out", "p1.net"))
	require.NoError(t, err)
	assert.Equal(t, "p1.net", named.Name())
	assert.Equal(t, ".param R00=2k R01=1k", named.Lines()[0])
}

func TestChangeParameters_AbortsOnUnknown(t *testing.T) {
	src := Parse(".param R00=1k R01=1k\n", "a.net")

	derived, err := src.ChangeParameters([]Assignment{{"R00", "7k"}, {"R99", "5k"}, {"R01", "3k"}}, "")

	assert.Nil(t, derived)
	var unknown *UnknownParameterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "R99", unknown.Name)
	assert.Equal(t, ".param R00=1k R01=1k", src.Lines()[0])
}

func TestClone_NoAliasing(t *testing.T) {
	src := Parse(".param a=1\n.op\n", "a.net")
	c := src.Clone()

	require.NoError(t, c.ChangeParameter("a", "2"))
	require.NoError(t, c.SetDirectiveParams("x"))

	assert.Equal(t, ".param a=1\n.op\n", src.Serialize())
	assert.Equal(t, ".param a=2\n.op x\n", c.Serialize())
}

func TestSetDirectiveParams(t *testing.T) {
	d := Parse("V1 in 0 5\n  .TRAN 0 1m\n.end\n", "")

	require.NoError(t, d.SetDirectiveParams("0  5m 0 1u"))
	assert.Equal(t, "  .TRAN 0 5m 0 1u", d.Lines()[1])

	dir := d.Directive()
	require.NotNil(t, dir)
	assert.Equal(t, DirectiveTran, dir.Kind)
	assert.Equal(t, "0 5m 0 1u", dir.Params)
}

func TestReplaceDirective(t *testing.T) {
	d := Parse(".tran 0 1m\n", "")

	require.NoError(t, d.ReplaceDirective(DirectiveDC, "V1 0 5 0.1"))
	assert.Equal(t, ".dc V1 0 5 0.1", d.Lines()[0])
	assert.Equal(t, DirectiveDC, d.Directive().Kind)

	require.NoError(t, d.ReplaceDirective(DirectiveOP, ""))
	assert.Equal(t, ".op", d.Lines()[0])
}

func TestDirective_NoneFound(t *testing.T) {
	d := Parse("; .tran 1m\nR1 a b 1k\n", "")

	assert.Nil(t, d.Directive())
	assert.ErrorIs(t, d.SetDirectiveParams("1m"), ErrNoDirective)
	assert.ErrorIs(t, d.ReplaceDirective(DirectiveOP, ""), ErrNoDirective)
}

func TestDirective_FirstWins(t *testing.T) {
	d := Parse(".op\n.tran 1m\n", "")
	assert.Equal(t, DirectiveOP, d.Directive().Kind)
	assert.Equal(t, 0, d.Directive().Line)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	src := Parse("* t\r\n.param R=1k\r\n.op\r\n", filepath.Join(dir, "c.net"))

	derived, err := src.ChangeParameters([]Assignment{{"R", "2k"}}, "")
	require.NoError(t, err)
	require.NoError(t, derived.WriteFile())

	got, err := os.ReadFile(filepath.Join(dir, "c_new.net"))
	require.NoError(t, err)
	assert.Equal(t, "* t\r\n.param R=2k\r\n.op\r\n", string(got))
}

func TestWriteFile_NoPath(t *testing.T) {
	assert.Error(t, Parse("a=1\n", "").WriteFile())
}

func TestLoad_UTF16(t *testing.T) {
	text := "* xvii\r\n.param R=1k\r\n.op\r\n"
	b, err := textenc.Encode(text, textenc.UTF16LE)
	require.NoError(t, err)

	d, err := Load(bytes.NewReader(b), "x.net")
	require.NoError(t, err)
	assert.Equal(t, textenc.UTF16LE, d.Encoding())
	assert.Equal(t, "1k", d.Parameters()["R"].Value)

	require.NoError(t, d.ChangeParameter("R", "3k"))
	var out bytes.Buffer
	_, err = d.WriteTo(&out)
	require.NoError(t, err)

	want, err := textenc.Encode(strings.Replace(text, "1k", "3k", 1), textenc.UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, want, out.Bytes())
}

func TestLoad_KeepsBOM(t *testing.T) {
	utf16bom, err := textenc.Encode("* xvii\r\n.param R=1k\r\n.op\r\n", textenc.UTF16LEBOM)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
		enc  textenc.Encoding
	}{
		{"utf8", []byte("\xEF\xBB\xBF* t\n.param R=1k\n.op\n"), textenc.UTF8BOM},
		{"utf16", utf16bom, textenc.UTF16LEBOM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Load(bytes.NewReader(tt.in), "x.net")
			require.NoError(t, err)
			assert.Equal(t, tt.enc, d.Encoding())
			assert.Equal(t, "1k", d.Parameters()["R"].Value)

			var out bytes.Buffer
			_, err = d.WriteTo(&out)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out.Bytes())
		})
	}
}

func TestAssignments_Sorted(t *testing.T) {
	got := Assignments(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []Assignment{{"a", "1"}, {"b", "2"}}, got)
	assert.Equal(t, "a=1", got[0].String())
}
