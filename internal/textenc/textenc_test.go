package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16le(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
		enc  Encoding
	}{
		{"plain", []byte("R1 a b 1k\n"), "R1 a b 1k\n", UTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "x=1\n"...), "x=1\n", UTF8BOM},
		{"utf16 no bom", utf16le("Values:\n"), "Values:\n", UTF16LE},
		{"utf16 bom", append([]byte{0xFF, 0xFE}, utf16le("a=b\n")...), "a=b\n", UTF16LEBOM},
		{"empty", nil, "", UTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.enc, enc)
		})
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	_, _, err := Decode([]byte{'a', 0xC3, 0x28, 'b', 'c'})
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestEncode_RoundTrip(t *testing.T) {
	b, err := Encode(".tran 1m\r\n", UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, utf16le(".tran 1m\r\n"), b)

	s, enc, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, ".tran 1m\r\n", s)
}

func TestEncode_KeepsBOM(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		enc  Encoding
	}{
		{"utf8", append([]byte{0xEF, 0xBB, 0xBF}, "* t\n.param R1=1k\n"...), UTF8BOM},
		{"utf16", append([]byte{0xFF, 0xFE}, utf16le(".op\r\n")...), UTF16LEBOM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, enc, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.enc, enc)

			b, err := Encode(s, enc)
			require.NoError(t, err)
			assert.Equal(t, tt.in, b)
		})
	}

	_, err := Encode("x", Encoding(42))
	assert.ErrorIs(t, err, ErrInvalidText)
}
