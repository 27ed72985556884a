package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow/content"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configFile, verbose, historyDriver, historyPath = "", false, "", ""
	runInput, runContent, runType = "", "", ""
	runLatency, runSeed, runFaults, runCollectAll, runRate = false, 0, nil, false, 0
	historyWorkflow, historyLimit = "", 20

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun_Conditional(t *testing.T) {
	out, err := execute(t, "run", content.ConditionalWorkflowID, "--content", "A great day.")
	require.NoError(t, err, out)

	var result struct {
		RunID  string         `json:"run_id"`
		Output map[string]any `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Contains(t, result.Output, content.StepQuick)
}

func TestRun_Errors(t *testing.T) {
	_, err := execute(t, "run", "missing-workflow", "--content", "x")
	assert.Error(t, err)

	_, err = execute(t, "run", content.ConditionalWorkflowID, "--input", "{not json")
	assert.ErrorContains(t, err, "invalid --input")

	_, err = execute(t, "run", content.ParallelWorkflowID, "--content", "x", "--fail", content.StepSentiment)
	assert.ErrorContains(t, err, content.StepSentiment)
}

func TestListAndDescribe(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, content.ConditionalWorkflowID)
	assert.Contains(t, out, content.ParallelWorkflowID)

	out, err = execute(t, "describe", content.ParallelWorkflowID)
	require.NoError(t, err)
	assert.Contains(t, out, "stage 0 (parallel)")
	assert.Contains(t, out, content.StepCombine)
}

func TestHistory(t *testing.T) {
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "history is disabled")

	db := filepath.Join(t.TempDir(), "runs.db")
	_, err = execute(t, "run", content.ConditionalWorkflowID, "--content", "A great day.",
		"--history", "sqlite", "--history-path", db)
	require.NoError(t, err)

	out, err := execute(t, "history", "--history", "sqlite", "--history-path", db)
	require.NoError(t, err)
	assert.Contains(t, out, content.ConditionalWorkflowID)
	assert.Contains(t, out, "succeeded")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "flow dev\n", out)
}
