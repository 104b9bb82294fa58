package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestOutputName(t *testing.T) {
	assert.Equal(t, "mg.out", OutputName("mg.yaml"))
	assert.Equal(t, "runs/ca.v2.out", OutputName("runs/ca.v2.yml"))
	assert.Equal(t, "input.out", OutputName("input"))
	assert.Equal(t, "runs.d/input.out", OutputName("runs.d/input"))
}

func TestLoggers(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.AppInfo("test")
	l.Delimiter()
	l.Timing("matrix generation", time.Now())
	l.PrintDense("H", mat.NewDense(1, 2, []float64{1, 2}))
	l.Warning.Println("careful")

	out := buf.String()
	assert.Contains(t, out, "goCI test")
	assert.Contains(t, out, "------ Time for matrix generation:")
	assert.Contains(t, out, "INFO: ")
	assert.Contains(t, out, "WARNING: ")
	assert.Contains(t, out, "H =\n[1  2]")
}

func TestOpenAndEcho(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(input, []byte("workers: 2\nsolutions: 3\n"), 0644))

	l, err := Open(OutputName(input))
	require.NoError(t, err)
	require.NoError(t, l.EchoFile(input))
	assert.Error(t, l.EchoFile(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, l.Close())

	lines, err := ReadFileLines(filepath.Join(dir, "run.out"))
	require.NoError(t, err)
	assert.Contains(t, lines, "solutions: 3")
	assert.Contains(t, lines, "Input file content:")

	require.NoError(t, Discard().Close())
}
