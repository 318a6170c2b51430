package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/healthdw/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "healthcare_dw",
				Username: "etl",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=healthcare_dw sslmode=disable user=etl password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "healthcare_dw",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=healthcare_dw sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "healthcare_dw",
			},
			expected: "host=localhost port=5432 dbname=healthcare_dw sslmode=disable",
		},
		{
			name: "non-default schema sets search_path",
			config: adapter.Config{
				Database: "healthcare_dw",
				Schema:   "warehouse",
			},
			expected: "host=localhost port=5432 dbname=healthcare_dw sslmode=disable search_path=warehouse",
		},
		{
			name: "extra options are sorted",
			config: adapter.Config{
				Database: "healthcare_dw",
				Schema:   "public",
				Options:  map[string]string{"connect_timeout": "5", "application_name": "healthdw"},
			},
			expected: "host=localhost port=5432 dbname=healthcare_dw sslmode=disable application_name=healthdw connect_timeout=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.DialectConfig().Name)
	assert.Equal(t, "public", adp.DialectConfig().DefaultSchema)
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "truncate without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.Truncate(ctx, []string{"dim_patient"})
			},
		},
		{
			name: "append without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.AppendRows(ctx, "dim_patient", []string{"patient_id"}, [][]any{{1}})
				return err
			},
		},
		{
			name: "read-only query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.QueryReadOnly(ctx, "SELECT 1", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), New(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not established")
		})
	}
}

func TestAdapter_Truncate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "fact_admissions", "dim_patient", "dim_time" RESTART IDENTITY CASCADE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	adp := New(nil)
	adp.DB = db

	require.NoError(t, adp.Truncate(context.Background(), []string{"fact_admissions", "dim_patient", "dim_time"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_TruncateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("TRUNCATE TABLE").WillReturnError(assert.AnError)

	adp := New(nil)
	adp.DB = db

	err = adp.Truncate(context.Background(), []string{"fact_admissions"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAdapter_AppendRowsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db

	n, err := adp.AppendRows(context.Background(), "dim_patient", []string{"patient_id"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableIdentifier(t *testing.T) {
	assert.Equal(t, []string{"dim_patient"}, []string(tableIdentifier("dim_patient")))
	assert.Equal(t, []string{"warehouse", "dim_patient"}, []string(tableIdentifier("warehouse.dim_patient")))
}
