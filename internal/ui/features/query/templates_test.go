package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibrary_Defaults(t *testing.T) {
	lib, err := NewLibrary("")
	require.NoError(t, err)

	all := lib.All()
	require.Len(t, all, 8)
	for _, tmpl := range all {
		assert.NotEmpty(t, tmpl.Name, tmpl.Key)
		assert.True(t, validChartType(tmpl.ChartType), tmpl.Key)
		_, err := CheckReadOnly(tmpl.SQL)
		assert.NoError(t, err, tmpl.Key)
	}

	_, ok := lib.Get("disease_distribution")
	assert.True(t, ok)
	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestLibrary_FileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- key: totals
  name: Totals
  sql: SELECT COUNT(*) AS n FROM fact_admissions
`), 0o600))

	lib, err := NewLibrary(path)
	require.NoError(t, err)
	require.Len(t, lib.All(), 1)
	assert.Equal(t, ChartAuto, lib.All()[0].ChartType)
	assert.Equal(t, path, lib.Path())

	require.NoError(t, os.WriteFile(path, []byte(`
- key: totals
  name: Totals
  sql: SELECT 1
  chart_type: pie
- key: other
  name: Other
  sql: SELECT 2
`), 0o600))
	require.NoError(t, lib.Reload())
	require.Len(t, lib.All(), 2)

	tmpl, ok := lib.Get("totals")
	require.True(t, ok)
	assert.Equal(t, ChartPie, tmpl.ChartType)

	// a broken file keeps the previous set
	require.NoError(t, os.WriteFile(path, []byte("- key: [unterminated"), 0o600))
	require.Error(t, lib.Reload())
	assert.Len(t, lib.All(), 2)
}

func TestParseTemplates_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing sql", "- key: a\n  name: A\n", "key and sql are required"},
		{"duplicate", "- {key: a, sql: SELECT 1}\n- {key: a, sql: SELECT 2}\n", "duplicate template key"},
		{"bad chart", "- {key: a, sql: SELECT 1, chart_type: radar}\n", "unknown chart type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTemplates([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLibrary_MissingFile(t *testing.T) {
	_, err := NewLibrary(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
