package core

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown to the ledger.
var ErrRunNotFound = errors.New("run not found")

// Store defines the interface for the ETL run ledger.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(sourcePath, targetType string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, counts RunCounts, errMsg string) error
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Step operations
	RecordStep(step *RunStep) error
	UpdateStep(id string, status StepStatus, rows int64, errMsg string) error
	GetStepsForRun(runID string) ([]*RunStep, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one execution of the ETL pipeline.
type Run struct {
	ID          string     `json:"id"`
	SourcePath  string     `json:"source_path"`
	TargetType  string     `json:"target_type"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RunCounts
}

// RunCounts holds the row counts a finished run reports.
type RunCounts struct {
	SourceRows        int64 `json:"source_rows"`
	FactRows          int64 `json:"fact_rows"`
	PatientCollisions int64 `json:"patient_collisions"`
}

// StepStatus represents the status of a single pipeline step.
type StepStatus string

// Step status constants.
const (
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// RunStep represents a single step (clear, extract, a dimension load...) within a run.
type RunStep struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Rows        int64      `json:"rows"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	ExecutionMS int64      `json:"execution_ms"`
}
