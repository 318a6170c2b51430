package runs

import (
	"time"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

// RunItem is a run as listed by the API.
type RunItem struct {
	*core.Run
	Duration string `json:"duration"`
}

// StepItem is a run step with a readable duration.
type StepItem struct {
	*core.RunStep
	Duration string `json:"duration"`
}

// RunDetail is returned by GET /api/runs/{id}.
type RunDetail struct {
	RunItem
	Steps []StepItem `json:"steps"`
}

// ListResponse is returned by GET /api/runs.
type ListResponse struct {
	Runs []RunItem `json:"runs"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newRunItem(run *core.Run, now time.Time) RunItem {
	return RunItem{Run: run, Duration: formatRunDuration(run.StartedAt, run.CompletedAt, now)}
}
