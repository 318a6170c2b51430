package etl

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys struct {
	maps map[string]KeyMap
	err  error
}

func (s staticKeys) KeyMap(_ context.Context, table, _, _ string) (KeyMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.maps[table], nil
}

func TestFactAssembler_Assemble(t *testing.T) {
	keys := staticKeys{maps: map[string]KeyMap{
		TableDisease:   {"Diabetes": 1},
		TableTime:      {"2023-01-10": 7},
		TableDoctor:    {"Dr. Bob": 3},
		TableHospital:  {"General": 4},
		TableInsurance: {"Acme": 5},
	}}

	bob := admission("Bob", "Diabetes", date(2023, 1, 10), date(2023, 1, 15))
	bob.BillingAmount = sql.NullFloat64{Float64: 1500, Valid: true}
	bob.RoomNumber = sql.NullInt64{Int64: 204, Valid: true}
	bob.AdmissionType = "Urgent"
	bob.Medication = "Insulin"
	bob.TestResults = "Normal"

	stranger := admission("Alice", "Gout", date(2024, 2, 2), date(2024, 2, 3))

	rows, err := (&FactAssembler{Keys: keys}).Assemble(context.Background(), []Admission{bob, stranger})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []any{
		PatientID("Bob"), int64(1), int64(7), int64(3), int64(4), int64(5),
		1500.0, int64(204), "Urgent", "Insulin", "Normal",
	}, rows[0])

	// Unmatched natural keys become NULL foreign keys, the row survives
	assert.Len(t, rows[1], len(FactColumns))
	assert.Equal(t, PatientID("Alice"), rows[1][0])
	assert.Nil(t, rows[1][1])
	assert.Nil(t, rows[1][2])
	assert.Nil(t, rows[1][3])
	assert.Equal(t, int64(4), rows[1][4])
	assert.Equal(t, int64(5), rows[1][5])
	assert.Nil(t, rows[1][6], "unknown billing amount")
	assert.Nil(t, rows[1][7], "unknown room")
}

func TestFactAssembler_KeyReadError(t *testing.T) {
	_, err := (&FactAssembler{Keys: staticKeys{err: errors.New("boom")}}).Assemble(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read dim_disease keys")
}
