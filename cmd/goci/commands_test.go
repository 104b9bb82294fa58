package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/integrals"
)

type radial struct{}

func (radial) OneElectron(a, b basis.OrbitalInfo) float64 {
	if a == b {
		return -1. / float64(a.PQN)
	}
	return 0.01
}
func (radial) SMS(a, b basis.OrbitalInfo) float64 { return 0.01 * float64(a.PQN-b.PQN) }
func (radial) Overlap(a, b basis.OrbitalInfo) float64 {
	if a == b {
		return 1
	}
	return 0.9
}
func (radial) Coulomb(k int, i, j, l, m basis.OrbitalInfo) float64 { return 0.05 / float64(1+k) }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeIntegrals(t *testing.T, name string, numFiles int) {
	t.Helper()
	var orbitals []basis.OrbitalInfo
	for _, s := range []string{"3s", "3p-", "3p+", "4s"} {
		o, err := basis.ParseOrbital(s)
		require.NoError(t, err)
		orbitals = append(orbitals, o)
	}
	store := integrals.New(orbitals, radial{})
	require.NoError(t, store.Update())
	for shard := 0; shard < numFiles; shard++ {
		require.NoError(t, store.WriteOneElectronIntegrals(name, shard, numFiles))
		require.NoError(t, store.WriteTwoElectronIntegrals(name, shard, numFiles))
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "mg")
	writeIntegrals(t, name, 1)

	input := filepath.Join(dir, "mg.yaml")
	metricsFile := filepath.Join(dir, "metrics.txt")
	require.NoError(t, os.WriteFile(input, []byte(`
solutions: 2
gfactors: true
symmetries: {even_two_j: [0], odd_two_j: [2]}
orbitals: ["3s", "3p-", "3p+", "4s"]
configurations: ["3s2", "3s 4s", "3p-2", "3s 3p-", "3s 3p+"]
integrals: {file: `+name+`}
metrics: {enabled: true, file: `+metricsFile+`}
`), 0644))

	stdout, err := execute(t, "run", "--workers", "2", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "goCI done.")

	out, err := os.ReadFile(filepath.Join(dir, "mg.out"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Input file content:")
	assert.Contains(t, string(out), "Number of workers: 2")
	assert.Contains(t, string(out), "Solutions for J = 1")

	text, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "goci_matrix_generate_seconds")
}

func TestRunCommand_NoSymmetries(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(input, []byte("configurations: [\"3s2\"]\n"), 0644))

	_, err := execute(t, "run", input)
	require.Error(t, err)
	out, err := os.ReadFile(filepath.Join(dir, "empty.out"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "ERROR: ")
	assert.Contains(t, string(out), "no symmetries requested")
}

func TestMergeIntegralsCommand(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "mg")
	writeIntegrals(t, name, 3)

	stdout, err := execute(t, "merge-integrals", name, "3", filepath.Join(dir, "merged"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "two-electron integrals written")
	assert.FileExists(t, filepath.Join(dir, "merged"+integrals.OneElectronExt))
	assert.FileExists(t, filepath.Join(dir, "merged"+integrals.TwoElectronExt))

	_, err = execute(t, "merge-integrals", name, "zero", "x")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, version)
}
