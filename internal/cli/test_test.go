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

const passingScenario = `
name: hold
description: "MOTOR1 follows START"
program: hold-to-run
period: 100ms
steps:
  - at: 0s
    set: { START: true }
  - at: 500ms
    set: { START: false }
    expect:
      outputs: { MOTOR1: false, MOTOR2: true }
`

const failingScenario = `
name: broken
description: "Expects MOTOR2 to drop without STOP"
program: hold-to-run
period: 100ms
steps:
  - at: 0s
    set: { START: true }
  - at: 500ms
    set: { START: false }
    expect:
      outputs: { MOTOR2: false }
`

func writeScenario(t *testing.T, dir, file, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(src), 0644))
}

func executeTest(t *testing.T, format string, args ...string) (string, error) {
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
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hold.yaml", passingScenario)

	out, err := executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hold")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "Programs without a scenario:")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hold.yaml", passingScenario)
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "output MOTOR2 = true, want false")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "broken", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "hold-to-run", resp.Data.Scenarios[0].Program)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: bad\nprogram: hold-to-run\n")

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hold.yaml", passingScenario)

	out, err := executeTest(t, "text", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hold (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "hold.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), "# hold: hold-to-run every 100ms\n")
	assert.Contains(t, string(golden), "1\t100ms\toutput\tMOTOR1=true\n")

	out, err = executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hold")

	require.NoError(t, os.WriteFile(goldenPath, []byte("# stale\n"), 0644))
	out, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hold.yaml", passingScenario)
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeTest(t, "text", "--filter", "ho*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "broken")
	assert.NotContains(t, out, "Programs without a scenario", "coverage is skipped when filtering")
}

func TestTestCommandCatalogue(t *testing.T) {
	out, err := executeTest(t, "text", "../../testdata/scenarios")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ chase_light")
	assert.Contains(t, out, "✓ All scenarios passed")
	assert.NotContains(t, out, "Programs without a scenario")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "chase_light.golden"),
		goldenFilePath(filepath.Join("scenarios", "chase_light.yaml")))
}

func TestFirstDifference(t *testing.T) {
	assert.Equal(t, `line 2: want "b", got "c"`, firstDifference([]byte("a\nb\n"), []byte("a\nc\n")))
	assert.Equal(t, `line 3: want "", got "x"`, firstDifference([]byte("a\nb"), []byte("a\nb\nx")))
}
