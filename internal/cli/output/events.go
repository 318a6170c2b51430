package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// RunEvent is one JSON line of `etl --json` progress output.
type RunEvent struct {
	Event      string    `json:"event"`
	RunID      string    `json:"run_id,omitempty"`
	Step       string    `json:"step,omitempty"`
	Status     string    `json:"status,omitempty"`
	Rows       int64     `json:"rows,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventWriter writes RunEvents as JSON lines. Safe for concurrent use.
type EventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEventWriter creates an EventWriter on w.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{enc: json.NewEncoder(w)}
}

// Emit writes ev, stamping it with the current time if unset.
func (e *EventWriter) Emit(ev RunEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(ev)
}
