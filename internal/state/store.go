// Package state records ETL runs and their steps in a SQLite ledger.
package state

import "github.com/leapstack-labs/healthdw/pkg/core"

// Type aliases so callers of the ledger need not import pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// RunCounts is an alias for core.RunCounts.
	RunCounts = core.RunCounts

	// RunStep is an alias for core.RunStep.
	RunStep = core.RunStep

	// StepStatus is an alias for core.StepStatus.
	StepStatus = core.StepStatus
)

// Run status constants re-exported from pkg/core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
	RunStatusCancelled = core.RunStatusCancelled
)

// Step status constants re-exported from pkg/core.
const (
	StepStatusRunning = core.StepStatusRunning
	StepStatusSuccess = core.StepStatusSuccess
	StepStatusFailed  = core.StepStatusFailed
	StepStatusSkipped = core.StepStatusSkipped
)
