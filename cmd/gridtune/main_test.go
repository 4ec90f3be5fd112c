package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeSpec(t, `
objective: sphere
grid:
  - name: x
    values: [-2, -1, 0, 1, 2]
  - name: y
    values: [-2, -1, 0, 1, 2]
heuristic: random_search
initial_sample_size: 3
max_iteration: 20
seed: 42
`)

	out, err := execute(t, "run", "-f", path)
	require.NoError(t, err)

	assert.Contains(t, out, "experiment: sphere")
	assert.Contains(t, out, "state:      exhausted")
	assert.Contains(t, out, "trials:     23 (3 initialization, 20 iterations)")
	assert.Contains(t, out, "x=")
}

func TestRunCommandJSON(t *testing.T) {
	path := writeSpec(t, `
objective: sphere
grid:
  - name: x
    values: [0, 1, 2]
initial_sample_size: 2
max_iteration: 3
seed: 7
`)

	out, err := execute(t, "run", "-f", path, "--json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "exhausted", result["state"])
	trials, ok := result["trials"].([]interface{})
	require.True(t, ok)
	assert.Len(t, trials, 5)
}

func TestRunCommandMissingFile(t *testing.T) {
	_, err := execute(t, "run", "-f", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading experiment file")
}

func TestRunCommandBadSpec(t *testing.T) {
	path := writeSpec(t, `
objective: no_such_objective
grid:
  - name: x
    values: [1, 2]
initial_sample_size: 1
max_iteration: 1
`)

	_, err := execute(t, "run", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_objective")
}

func TestObjectivesCommand(t *testing.T) {
	out, err := execute(t, "objectives")
	require.NoError(t, err)
	assert.Contains(t, out, "sphere")
	assert.Contains(t, out, "noisy_sphere")
}

func TestHeuristicsCommand(t *testing.T) {
	out, err := execute(t, "heuristics")
	require.NoError(t, err)
	for _, name := range []string{"random_search", "exhaustive_search", "simulated_annealing", "genetic_algorithm", "surrogate_model"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gridtune")
}
