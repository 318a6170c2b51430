package etl

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by SourceError.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidValue  = errors.New("invalid value")
)

// SourceError reports a source-format problem. Row 0 is the header; data rows
// are numbered from 1.
type SourceError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("source header: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("source row %d: column %q: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// StepError attaches the pipeline step that failed to a storage or source error.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
