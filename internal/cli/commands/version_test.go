package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		wantHead string
	}{
		{"release", "0.1.0", "healthdw v0.1.0"},
		{"prerelease", "1.2.3-rc.1", "healthdw v1.2.3-rc.1"},
		{"dev build", "dev", "healthdw vdev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(nil)

			require.NoError(t, cmd.Execute())

			lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, tt.wantHead, lines[0])
			assert.Equal(t, "Healthcare data warehouse ETL and dashboard API", lines[1])
		})
	}
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	cmd := NewVersionCommand("0.1.0")
	assert.Equal(t, "version", cmd.Use)
	assert.Contains(t, cmd.Long, "healthdw")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
