// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/pkg/adapters/duckdb"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// SetupWarehouseProject creates a temporary project with a healthdw.yaml,
// the sample admissions CSV and a DuckDB warehouse file holding the star
// schema. It returns the project directory.
func SetupWarehouseProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	etlTestdata := etlTestdataDir(t)

	csvData, err := os.ReadFile(filepath.Join(etlTestdata, "admissions.csv"))
	if err != nil {
		t.Fatalf("failed to read sample admissions: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "admissions.csv"), csvData, 0o600); err != nil {
		t.Fatalf("failed to write admissions.csv: %v", err)
	}

	schema, err := os.ReadFile(filepath.Join(etlTestdata, "schema_duckdb.sql"))
	if err != nil {
		t.Fatalf("failed to read warehouse schema: %v", err)
	}

	ctx := context.Background()
	adp := duckdb.New(slog.New(slog.DiscardHandler))
	if err := adp.Connect(ctx, core.AdapterConfig{Path: filepath.Join(tmpDir, "dw.duckdb")}); err != nil {
		t.Fatalf("failed to create warehouse: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := adp.Exec(ctx, stmt); err != nil {
			_ = adp.Close()
			t.Fatalf("failed to create warehouse schema: %v", err)
		}
	}
	if err := adp.Close(); err != nil {
		t.Fatalf("failed to close warehouse: %v", err)
	}

	cfg := `source: admissions.csv
state_path: .healthdw/state.db
target:
  type: duckdb
  database: dw.duckdb
etl:
  parallelism: 2
`
	if err := os.WriteFile(filepath.Join(tmpDir, "healthdw.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to write healthdw.yaml: %v", err)
	}

	return tmpDir
}

// etlTestdataDir locates internal/etl/testdata from this source file.
func etlTestdataDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate testutil source")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "etl", "testdata")
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererAuto creates a new test renderer with auto mode detection.
// In tests, non-TTY defaults to markdown output.
func NewTestRendererAuto() *TestRenderer {
	return NewTestRenderer(output.ModeAuto, false)
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks that the renderer output matches expected mode characteristics.
func AssertOutputMode(t *testing.T, tr *TestRenderer, expectedMode output.OutputMode) {
	t.Helper()

	combinedOutput := tr.Output() + tr.ErrorOutput()

	switch expectedMode {
	case output.ModeMarkdown:
		AssertNoANSI(t, combinedOutput)
		// Markdown mode should not contain ANSI codes
	case output.ModeText:
		// Text mode may contain ANSI codes if TTY
		// No specific assertion needed
	case output.ModeJSON:
		AssertNoANSI(t, combinedOutput)
		// JSON mode should not contain ANSI codes
	}
}
