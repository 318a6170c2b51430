package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks returns 100", checks: nil, want: 100},
		{
			name:   "all passing returns 100",
			checks: []HealthCheck{{ID: "CF01", Status: checkPass}, {ID: "SR01", Status: checkPass}},
			want:   100,
		},
		{
			name:   "warnings reduce score",
			checks: []HealthCheck{{ID: "CF01", Status: checkWarn}, {ID: "SR01", Status: checkPass}},
			want:   90,
		},
		{
			name:   "errors reduce score more",
			checks: []HealthCheck{{ID: "WH01", Status: checkError}, {ID: "WH02", Status: checkWarn}},
			want:   70,
		},
		{
			name: "score never drops below 0",
			checks: []HealthCheck{
				{Status: checkError}, {Status: checkError}, {Status: checkError},
				{Status: checkError}, {Status: checkError}, {Status: checkError},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{"CF01", true},
		{"SR01", true},
		{"SR02", true},
		{"SR03", false},
		{"WH01", true},
		{"WH02", true},
		{"WH03", true},
		{"LG01", true},
		{"UNKNOWN", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := getRecommendation(tt.id)
			if tt.expected {
				assert.NotEmpty(t, rec, "expected recommendation for %s", tt.id)
			} else {
				assert.Empty(t, rec, "expected no recommendation for %s", tt.id)
			}
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{ID: "WH03", Status: checkWarn},
		{ID: "LG01", Status: checkWarn},
		{ID: "SR02", Status: checkError},
		{ID: "CF01", Status: checkPass},
	}

	recommendations := generateRecommendations(checks)

	// WH03 and LG01 share a recommendation
	require.Len(t, recommendations, 2)
	assert.Contains(t, recommendations[0], "healthdw etl")
	assert.Contains(t, recommendations[1], "header")
}

func TestJoinedMessages(t *testing.T) {
	err := errors.Join(errors.New("first"), errors.New("second"))
	assert.Equal(t, []string{"first", "second"}, joinedMessages(err))
	assert.Equal(t, []string{"single"}, joinedMessages(errors.New("single")))
}

func TestDoctor_Project(t *testing.T) {
	dir := loadProject(t)

	runDoctorJSON := func(t *testing.T) DoctorOutput {
		t.Helper()
		cmd := NewDoctorCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--format", "json"})
		require.NoError(t, cmd.Execute())

		var result DoctorOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		return result
	}

	t.Run("fresh warehouse", func(t *testing.T) {
		result := runDoctorJSON(t)

		statuses := map[string]string{}
		for _, c := range result.HealthChecks {
			statuses[c.ID] = c.Status
		}
		assert.Equal(t, checkPass, statuses["CF01"])
		assert.Equal(t, checkPass, statuses["SR01"])
		assert.Equal(t, checkPass, statuses["SR02"])
		assert.Equal(t, checkPass, statuses["WH01"])
		assert.Equal(t, checkPass, statuses["WH02"])
		assert.Equal(t, checkWarn, statuses["WH03"])
		assert.Equal(t, checkWarn, statuses["LG01"])

		assert.Equal(t, 7, result.Summary.Tables)
		assert.Positive(t, result.Summary.SourceRows)
		assert.Equal(t, 2, result.IssueCount)
	})

	t.Run("broken header", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "admissions.csv"), []byte("Name,Age\nBob,45\n"), 0o600))

		result := runDoctorJSON(t)

		var header HealthCheck
		for _, c := range result.HealthChecks {
			if c.ID == "SR02" {
				header = c
			}
		}
		assert.Equal(t, checkError, header.Status)
		assert.NotEmpty(t, header.Details)
	})
}
