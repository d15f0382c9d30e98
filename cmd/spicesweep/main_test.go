package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/spicesweep/pkg/netlist"
)

// execute runs the CLI with a config file that does not exist, so every
// setting is a default unless the test writes one.
func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "none.yaml")
	}

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func copyFile(t *testing.T, src, dir string) string {
	t.Helper()
	b, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(dir, filepath.Base(src))
	require.NoError(t, os.WriteFile(dst, b, 0o644))
	return dst
}

func TestParamsCmd(t *testing.T) {
	out, err := execute(t, "", "params", filepath.Join("testdata", "simple_resistance_circuit.net"))
	require.NoError(t, err)

	assert.Contains(t, out, "Analysis: Operating Point  .op  (line 5)")
	assert.Contains(t, out, "Rload0           2k           line 6")
	assert.Contains(t, out, "Rload1           3k           line 6")
}

func TestSetCmd(t *testing.T) {
	dir := t.TempDir()
	src := copyFile(t, filepath.Join("testdata", "simple_resistance_circuit.net"), dir)
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	out, err := execute(t, "", "set", src, "Rload0=1k", "Rload1=5k", "--directive", ".tran 1m")
	require.NoError(t, err)

	derived := filepath.Join(dir, "simple_resistance_circuit_new.net")
	assert.Equal(t, derived, strings.TrimSpace(out))

	doc, err := netlist.LoadFile(derived)
	require.NoError(t, err)
	assert.Equal(t, "1k", doc.Parameters()["Rload0"].Value)
	assert.Equal(t, "5k", doc.Parameters()["Rload1"].Value)
	assert.Equal(t, netlist.DirectiveTran, doc.Directive().Kind)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetCmd_Errors(t *testing.T) {
	src := filepath.Join("testdata", "simple_resistance_circuit.net")
	out := filepath.Join(t.TempDir(), "x.net")

	_, err := execute(t, "", "set", src, "R99=5k", "-o", out)
	var unknown *netlist.UnknownParameterError
	assert.ErrorAs(t, err, &unknown)
	assert.NoFileExists(t, out)

	_, err = execute(t, "", "set", src, "Rload0", "-o", out)
	assert.ErrorContains(t, err, "NAME=VALUE")
}

func TestShowCmd(t *testing.T) {
	out, err := execute(t, "", "show", filepath.Join("testdata", "simple_resistance_circuit.raw"))
	require.NoError(t, err)

	assert.Contains(t, out, "Operating Point:")
	assert.Contains(t, out, "n001             5.000 V")
	assert.Contains(t, out, "test             3.000 V")
	assert.Contains(t, out, "V1               -1.000 mA")

	out, err = execute(t, "", "show", filepath.Join("testdata", "photoresistor_array.raw"), "OUT", "rload:device", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Transient Analysis:")
	assert.Contains(t, out, "... 4 more points")

	_, err = execute(t, "", "show", filepath.Join("testdata", "simple_resistance_circuit.raw"), "nowhere")
	assert.Error(t, err)

	_, err = execute(t, "", "show", filepath.Join("testdata", "simple_resistance_circuit.raw"), "R1:branch")
	assert.Error(t, err)
}

func TestShowCmd_NoVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.raw")
	header := "Title: * empty\nPlotname: Operating Point\nNo. Variables: 0\nNo. Points: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(header), 0o644))

	_, err := execute(t, "", "show", path)
	assert.ErrorContains(t, err, "no variables")

	_, err = execute(t, "", "plot", path, "out", "-o", filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorContains(t, err, "no variables")
}

func TestPlotCmd(t *testing.T) {
	img := filepath.Join(t.TempDir(), "out.svg")

	out, err := execute(t, "", "plot", filepath.Join("testdata", "photoresistor_array.raw"), "out", "-o", img)
	require.NoError(t, err)
	assert.Equal(t, img, strings.TrimSpace(out))
	assert.FileExists(t, img)
}

// fakeLTspice writes an executable that leaves a fixed log and raw file
// next to the netlist it is given.
func fakeLTspice(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake simulator needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	rawFile, err := filepath.Abs(filepath.Join("testdata", "simple_resistance_circuit.raw"))
	require.NoError(t, err)

	script := "#!/bin/sh\nfor last; do :; done\nbase=\"${last%.*}\"\n" +
		"echo 'Circuit: fake' > \"$base.log\"\n" +
		"cp '" + rawFile + "' \"$base.raw\"\n"
	path := filepath.Join(t.TempDir(), "fake-ltspice")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeConfig(t *testing.T, exe string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spicesweep.yaml")
	cfg := "simulator:\n  executable: " + exe + "\n  timeout: 30s\nsweep:\n  workers: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestRunCmd(t *testing.T) {
	cfg := writeConfig(t, fakeLTspice(t))
	dir := t.TempDir()
	src := copyFile(t, filepath.Join("testdata", "simple_resistance_circuit.net"), dir)
	metricsFile := filepath.Join(t.TempDir(), "spicesweep.prom")

	out, err := execute(t, cfg, "--metrics-file", metricsFile, "run", src, "Rload0=1k", "-p", "test", "-p", "R1:device")
	require.NoError(t, err)

	assert.Contains(t, out, "test             3.000 V")
	assert.Contains(t, out, "R1               1.000 mA")
	assert.NotContains(t, out, "R2 ")
	assert.FileExists(t, filepath.Join(dir, "simple_resistance_circuit_new.raw"))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `spicesweep_simulations_total{status="ok"} 1`)
	assert.Contains(t, string(prom), "spicesweep_parameter_changes_total 1")
}

func TestSweepCmd(t *testing.T) {
	cfg := writeConfig(t, fakeLTspice(t))
	dir := t.TempDir()
	copyFile(t, filepath.Join("testdata", "simple_resistance_circuit.net"), dir)

	plan := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(plan, []byte(`netlist: simple_resistance_circuit.net
output: runs
grid:
  Rload0: [1k, 2k]
  Rload1: [3k]
probes:
  - {name: test}
`), 0o644))

	csvPath := filepath.Join(dir, "results.csv")
	out, err := execute(t, cfg, "sweep", plan, "-o", csvPath)
	require.NoError(t, err)
	assert.Equal(t, csvPath, strings.TrimSpace(out))

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "point,Rload0,Rload1,V(test),error\n0,1k,3k,3,\n1,2k,3k,3,\n", string(b))

	assert.FileExists(t, filepath.Join(dir, "runs", "simple_resistance_circuit_001.net"))
}
