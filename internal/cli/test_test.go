package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir    = filepath.Join("..", "harness", "testdata", "golden")
)

const failingScenario = `name: too_many_rows
description: "Asserts more rows than the flow writes"
config:
  planner: insert-only
  model.key.fields: [id]
flow:
  - records:
      - { id: "a" }
assertions:
  - type: row_count
    count: 5
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandUpdateWithoutGolden(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir(), "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", goldenDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ insert_only_basic")
	assert.Contains(t, out, "✓ upsert_collapse")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir, "--filter", "insert_only_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 3, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Contains(t, s.Name, "insert_only_")
	}
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "too_many_rows.yaml", failingScenario)
	writeScenario(t, dir, "broken.yml", "name: broken\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ too_many_rows")
	assert.Contains(t, out, "assertions[0]")
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "Test Summary: 0 passed, 2 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "too_many_rows.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TEST_FAILED", resp.Error.Code)
}

func TestTestCommandGoldenUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(t.TempDir(), "golden")
	data, err := os.ReadFile(filepath.Join(scenariosDir, "insert_only_basic.yaml"))
	require.NoError(t, err)
	writeScenario(t, dir, "insert_only_basic.yaml", string(data))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--golden", golden, "--update")
	require.NoError(t, err, out)

	written, err := os.ReadFile(filepath.Join(golden, "insert_only_basic.golden"))
	require.NoError(t, err)
	checked, err := os.ReadFile(filepath.Join(goldenDir, "insert_only_basic.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(checked), string(written))

	require.NoError(t, os.WriteFile(filepath.Join(golden, "insert_only_basic.golden"), []byte("{}\n"), 0o644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}
