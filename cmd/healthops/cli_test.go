package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// sqliteArgs points the CLI at a file store so state survives between
// invocations.
func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--mock", "--log-level", "error", "--store", "sqlite", "--store-dsn", filepath.Join(t.TempDir(), "ops.db")}
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestAsk_RoutesOffline(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "--mock", "ask", "urgent", "staff", "shortage", "in", "ICU")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[staff_scheduling | critical | thread ")
}

func TestAsk_JSON(t *testing.T) {
	stdout, _, err := executeCLI(t, "",
		"--mock", "ask", "--json",
		"--thread", "t-1",
		"--context", "budget_info=Q3 frozen",
		"--metrics", filepath.Join("testdata", "metrics.yaml"),
		"resource", "levels?",
	)
	require.NoError(t, err)

	var resp struct {
		ThreadID string         `json:"thread_id"`
		Task     state.TaskType `json:"task"`
		Metrics  state.Metrics  `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "t-1", resp.ThreadID)
	assert.Equal(t, state.TaskResourceManagement, resp.Task)
	assert.Equal(t, 95, resp.Metrics.PatientFlow.OccupiedBeds)
	assert.InDelta(t, 0.1, resp.Metrics.Resources.SupplyLevels["gloves"], 1e-9)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no question", []string{"--mock", "ask"}, "requires at least 1 arg"},
		{"bad context", []string{"--mock", "ask", "--context", "novalue", "hi"}, "want key=value"},
		{"missing metrics file", []string{"--mock", "ask", "--metrics", "nope.yaml", "hi"}, "read metrics"},
		{"missing key", []string{"ask", "hi"}, "openai_api_key"},
		{"bad store", []string{"--mock", "--store", "redis", "ask", "hi"}, `validation error on store_backend: unknown backend "redis"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAsk_BlankInput(t *testing.T) {
	_, _, err := executeCLI(t, "", "--mock", "ask", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INPUT_VALIDATION_ERROR")
}

func TestHistoryAndReset(t *testing.T) {
	base := sqliteArgs(t)

	_, _, err := executeCLI(t, "", append(base, "ask", "--thread", "t-9", "quality", "check")...)
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, "", append(base, "history", "--thread", "t-9", "--json")...)
	require.NoError(t, err)
	var messages []state.Message
	require.NoError(t, json.Unmarshal([]byte(stdout), &messages))
	require.Len(t, messages, 3)
	assert.Equal(t, "quality check", messages[0].Content)
	assert.Equal(t, "output_synthesizer", messages[2].Name)

	stdout, _, err = executeCLI(t, "", append(base, "threads")...)
	require.NoError(t, err)
	assert.Equal(t, "t-9\n", stdout)

	stdout, _, err = executeCLI(t, "", append(base, "reset", "--thread", "t-9")...)
	require.NoError(t, err)
	assert.Equal(t, "thread t-9 reset\n", stdout)

	stdout, _, err = executeCLI(t, "", append(base, "history", "--thread", "t-9")...)
	require.NoError(t, err)
	assert.Equal(t, "no messages\n", stdout)
}

func TestHistory_RequiresThread(t *testing.T) {
	_, _, err := executeCLI(t, "", "--mock", "history")
	assert.ErrorIs(t, err, errThreadRequired)

	_, _, err = executeCLI(t, "", "--mock", "reset")
	assert.ErrorIs(t, err, errThreadRequired)
}

func TestChat(t *testing.T) {
	stdout, _, err := executeCLI(t, "patient flow update\n\nstaff roster\n/reset\nexit\n", "--mock", "--log-level", "error", "chat", "--thread", "c-1")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[patient_flow | medium | thread c-1]")
	assert.Contains(t, stdout, "[staff_scheduling | medium | thread c-1]")
	assert.Contains(t, stdout, "conversation reset")
}

func TestChat_StopsAtEOF(t *testing.T) {
	stdout, _, err := executeCLI(t, "hello", "--mock", "chat")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[general | medium | thread ")
}

func TestScenarios(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "--mock", "--log-level", "error", "scenarios", filepath.Join("testdata", "scenarios.yaml"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "== Patient Flow")
	assert.Contains(t, stdout, "PASS patient_flow")
	assert.Contains(t, stdout, "---- general")
	assert.Contains(t, stdout, "5 passed, 0 failed, 0 errors")
}

func TestScenarios_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	writeScenario(t, path, "batches:\n  - name: Mismatch\n    queries:\n      - input: \"quality audit\"\n        expect: staff_scheduling\n")

	stdout, _, err := executeCLI(t, "", "--mock", "--log-level", "error", "scenarios", path)
	require.Error(t, err)
	assert.Contains(t, stdout, "FAIL quality_monitoring")
	assert.Contains(t, stdout, "expected staff_scheduling")
}

func TestScenarios_UnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	writeScenario(t, path, "batches:\n  - name: Bad\n    queries:\n      - input: x\n        expect: billing\n")

	_, _, err := executeCLI(t, "", "--mock", "scenarios", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown expected category "billing"`)
}

func TestOverrides_FromEnv(t *testing.T) {
	t.Setenv("HEALTHOPS_MODEL_NAME", "env-model")
	t.Setenv("HEALTHOPS_METRICS_ENABLED", "true")

	got := overrides(newViper())
	assert.Equal(t, "env-model", got["model_name"])
	assert.Equal(t, true, got["metrics_enabled"])
	assert.NotContains(t, got, "store_backend")
}

func writeScenario(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestParseContext(t *testing.T) {
	got, err := parseContext([]string{"budget_info=tight = 5%", " ward = 4B "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"budget_info": "tight = 5%", "ward": "4B"}, got)

	got, err = parseContext(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
