package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

// recordingAdapter captures writes. Methods not overridden panic through the
// nil embedded interface.
type recordingAdapter struct {
	core.Adapter
	truncated [][]string
	batches   []int
	appendErr error
}

func (a *recordingAdapter) Truncate(_ context.Context, tables []string) error {
	a.truncated = append(a.truncated, tables)
	return nil
}

func (a *recordingAdapter) AppendRows(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	if a.appendErr != nil {
		return 0, a.appendErr
	}
	a.batches = append(a.batches, len(rows))
	return int64(len(rows)), nil
}

func makeRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i}
	}
	return rows
}

func TestSink_Append(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		rows        int
		wantBatches []int
	}{
		{"single append when unbatched", 0, 5, []int{5}},
		{"even batches", 2, 4, []int{2, 2}},
		{"trailing batch", 2, 5, []int{2, 2, 1}},
		{"no rows", 2, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := &recordingAdapter{}
			sink := NewSink(adp, tt.batchSize, nil)

			n, err := sink.Append(context.Background(), TableDisease, []string{"medical_condition"}, makeRows(tt.rows))
			require.NoError(t, err)
			assert.Equal(t, int64(tt.rows), n)
			assert.Equal(t, tt.wantBatches, adp.batches)
		})
	}
}

func TestSink_AppendError(t *testing.T) {
	adp := &recordingAdapter{appendErr: errors.New("constraint violation")}
	_, err := NewSink(adp, 0, nil).Append(context.Background(), TableDisease, []string{"medical_condition"}, makeRows(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
}

func TestSink_Clear(t *testing.T) {
	adp := &recordingAdapter{}
	require.NoError(t, NewSink(adp, 0, nil).Clear(context.Background()))

	require.Len(t, adp.truncated, 1)
	assert.Equal(t, TableFact, adp.truncated[0][0], "fact table is cleared first")
	assert.Len(t, adp.truncated[0], 7)
}

func TestNaturalKey(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"date", time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), "2023-01-10"},
		{"timestamp string", "2023-01-10T00:00:00Z", "2023-01-10"},
		{"timestamp bytes", []byte("2023-01-10 00:00:00"), "2023-01-10"},
		{"date string", "2023-01-10", "2023-01-10"},
		{"text", "Diabetes", "Diabetes"},
		{"long text", "Blue Cross Blue Shield", "Blue Cross Blue Shield"},
		{"integer", int64(42), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, naturalKey(tt.in))
		})
	}
}
