package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScenario = `name: cli_smoke
description: "compile one request"
policy_file: policies/policy.yaml
cases:
  - name: by_creature
    request:
      query: SELECT
      items: ["*"]
      table: images
      connection: WHERE
      logic: {creature: {"=": owlbear}}
    expect:
      ok: true
      sql: "SELECT * FROM images WHERE creature = ?"
      params: [owlbear]
  - name: bad_table
    request: {query: SELECT, items: ["*"], table: secrets}
    expect:
      ok: false
      code: DISALLOWED_TABLE
`

// writeScenarioDir creates a scenarios directory holding testScenario and
// a copy of the test policy under policies/.
func writeScenarioDir(t *testing.T, scenario string) string {
	t.Helper()
	dir := t.TempDir()
	pol, err := os.ReadFile("testdata/policy.yaml")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policies"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policies", "policy.yaml"), pol, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli_smoke.yaml"), []byte(scenario), 0644))
	return dir
}

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", "../harness/testdata/scenarios",
		"--golden", "../harness/testdata/golden")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ images_basic")
	assert.Contains(t, out, "✓ fixture_execution")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCommand(t, "json", "../harness/testdata/scenarios",
		"--golden", "../harness/testdata/golden", "--filter", "images_*")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "images_basic", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := runTestCommand(t, "text", writeScenarioDir(t, testScenario), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := writeScenarioDir(t, testScenario)

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err, out)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "cli_smoke.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"sql":"SELECT * FROM images WHERE creature = ?"`)
	assert.Contains(t, string(golden), `"code":"DISALLOWED_TABLE"`)

	out, err = runTestCommand(t, "text", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ cli_smoke")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := writeScenarioDir(t, testScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "cli_smoke.golden"), []byte(`{"cases":[]}`), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cli_smoke")
	assert.Contains(t, out, "golden file mismatch")
}

func TestTestCommandFailingExpectation(t *testing.T) {
	broken := `name: cli_smoke
description: "expects the wrong SQL"
policy_file: policies/policy.yaml
cases:
  - name: wrong_sql
    request: {query: SELECT, items: ["*"], table: images}
    expect:
      ok: true
      sql: "SELECT name FROM images"
`
	dir := writeScenarioDir(t, broken)

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeScenarioDir(t, "name: cli_smoke\ncasez: []\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ cli_smoke.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
