// Package testutil provides logging helpers for warehouse tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes to t.Log, so ETL
// and adapter output only shows up on failure or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// LogRecord is one captured log line, decoded from JSON.
type LogRecord map[string]any

// Message returns the record's msg field.
func (r LogRecord) Message() string {
	s, _ := r[slog.MessageKey].(string)
	return s
}

// Level returns the record's level field.
func (r LogRecord) Level() string {
	s, _ := r[slog.LevelKey].(string)
	return s
}

// LogCapture collects records written by a logger from NewCaptureLogger.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Records decodes every captured line. Lines that fail to decode are skipped.
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []LogRecord
	for _, line := range strings.Split(c.buf.String(), "\n") {
		if line == "" {
			continue
		}
		var rec LogRecord
		if err := json.Unmarshal([]byte(line), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

// Find returns the records whose message equals msg.
func (c *LogCapture) Find(msg string) []LogRecord {
	var out []LogRecord
	for _, rec := range c.Records() {
		if rec.Message() == msg {
			out = append(out, rec)
		}
	}
	return out
}

// NewCaptureLogger returns a JSON logger that writes to both t.Log and the
// returned capture, for tests that assert on pipeline warnings.
func NewCaptureLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	t.Helper()
	capture := &LogCapture{}
	w := io.MultiWriter(testWriter{t}, capture)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})), capture
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
