package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/leapstack-labs/healthdw/internal/cli/testutil"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRunList(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(1500 * time.Millisecond)
	runs := []*core.Run{
		{
			ID: "run-2", Status: core.RunStatusFailed, StartedAt: started, CompletedAt: &completed,
			TargetType: "duckdb", Error: "step extract: boom",
		},
		{
			ID: "run-1", Status: core.RunStatusCompleted, StartedAt: started, CompletedAt: &completed,
			TargetType: "postgres", RunCounts: core.RunCounts{SourceRows: 4, FactRows: 4},
		},
	}

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderRunList(tr.Renderer, runs))
		out := tr.Output()
		assert.Contains(t, out, "| run-1 |")
		assert.Contains(t, out, "1.5s")
		testutil.AssertNoANSI(t, out)
	})

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		require.NoError(t, renderRunList(tr.Renderer, runs))
		assert.Contains(t, tr.Output(), `"id": "run-2"`)
		assert.Contains(t, tr.Output(), `"fact_rows": 4`)
	})

	t.Run("empty json is an array", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		require.NoError(t, renderRunList(tr.Renderer, nil))
		assert.Equal(t, "[]\n", tr.Output())
	})

	t.Run("empty text", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderRunList(tr.Renderer, nil))
		assert.Contains(t, tr.Output(), "No runs recorded yet")
	})
}

func TestRenderRunDetail(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &core.Run{
		ID: "run-9", Status: core.RunStatusFailed, StartedAt: started,
		SourcePath: "admissions.csv", TargetType: "duckdb", Error: "step transform: bad\nmore",
	}
	steps := []*core.RunStep{
		{Name: "extract", Status: core.StepStatusSuccess, Rows: 4, ExecutionMS: 3},
		{Name: "transform", Status: core.StepStatusFailed, Error: "bad row\ndetail"},
	}

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderRunDetail(tr.Renderer, run, steps))
	out := tr.Output()

	assert.Contains(t, out, "# Run run-9")
	assert.Contains(t, out, "- **Status**: failed")
	assert.Contains(t, out, "- **Duration**: -")
	assert.Contains(t, out, "✓ extract")
	assert.Contains(t, out, "✗ transform")
	assert.Contains(t, out, "bad row")
	assert.NotContains(t, out, "detail")
	testutil.AssertValidMarkdown(t, out)
}

func TestRunsCommand_NotFound(t *testing.T) {
	loadProject(t)

	cmd := NewRunsCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"does-not-exist"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "does-not-exist" not found`)
}
