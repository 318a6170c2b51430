package etl

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNames []string
		wantRows  [][]string
		wantErr   bool
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:      "header only",
			input:     "Name,Age\n",
			wantNames: []string{"Name", "Age"},
		},
		{
			name:      "strips byte order mark",
			input:     "\ufeffName,Age\nBob,45\n",
			wantNames: []string{"Name", "Age"},
			wantRows:  [][]string{{"Bob", "45"}},
		},
		{
			name:      "keeps NA as text",
			input:     "Name,Medication\nBob,NA\n",
			wantNames: []string{"Name", "Medication"},
			wantRows:  [][]string{{"Bob", "NA"}},
		},
		{
			name:      "quoted fields",
			input:     "Name,Hospital\n\"Smith, Jane\",\"General, North\"\n",
			wantNames: []string{"Name", "Hospital"},
			wantRows:  [][]string{{"Smith, Jane", "General, North"}},
		},
		{
			name:    "ragged row",
			input:   "Name,Age\nBob\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := readFrame(context.Background(), strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantNames, frame.Names())
			assert.Equal(t, len(tt.wantRows), frame.Len())
			assert.Equal(t, tt.wantRows, frame.Rows())
		})
	}
}

func TestReadSource(t *testing.T) {
	t.Run("fixture", func(t *testing.T) {
		frame, err := ReadSource(context.Background(), filepath.Join("testdata", "admissions.csv"))
		require.NoError(t, err)
		assert.Equal(t, 4, frame.Len())
		assert.Len(t, frame.Names(), len(RequiredColumns))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSource(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open source file")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ReadSource(ctx, filepath.Join("testdata", "admissions.csv"))
		require.ErrorIs(t, err, context.Canceled)
	})
}
