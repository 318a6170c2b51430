// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/healthdw/internal/state"
	"github.com/leapstack-labs/healthdw/internal/testutil"
	"github.com/leapstack-labs/healthdw/pkg/adapters/duckdb"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// warehouseDDL is the star schema with a handful of admissions.
var warehouseDDL = []string{
	`CREATE TABLE dim_patient (patient_id INTEGER PRIMARY KEY, patient_name VARCHAR, age INTEGER, gender VARCHAR, blood_type VARCHAR)`,
	`CREATE TABLE dim_disease (disease_id INTEGER PRIMARY KEY, medical_condition VARCHAR)`,
	`CREATE TABLE dim_time (time_id INTEGER PRIMARY KEY, admission_date DATE, discharge_date DATE, month INTEGER, year INTEGER, quarter INTEGER, day_of_week VARCHAR)`,
	`CREATE TABLE dim_doctor (doctor_id INTEGER PRIMARY KEY, doctor_name VARCHAR)`,
	`CREATE TABLE dim_hospital (hospital_id INTEGER PRIMARY KEY, hospital_name VARCHAR)`,
	`CREATE TABLE dim_insurance (insurance_id INTEGER PRIMARY KEY, insurance_provider VARCHAR)`,
	`CREATE TABLE fact_admissions (
		admission_id INTEGER PRIMARY KEY,
		patient_id INTEGER,
		disease_id INTEGER,
		time_id INTEGER,
		doctor_id INTEGER,
		hospital_id INTEGER,
		insurance_id INTEGER,
		billing_amount DOUBLE,
		room_number INTEGER,
		admission_type VARCHAR,
		medication VARCHAR,
		test_results VARCHAR
	)`,
	`INSERT INTO dim_patient VALUES
		(226942, 'Bob', 45, 'Male', 'A+'),
		(480261, 'Alice', 30, 'Female', 'O-'),
		(113817, 'Carol', 62, 'Female', 'B+')`,
	`INSERT INTO dim_disease VALUES (1, 'Flu'), (2, 'Asthma'), (3, 'Diabetes')`,
	`INSERT INTO dim_time VALUES
		(1, DATE '2023-01-10', DATE '2023-01-12', 1, 2023, 1, 'Tuesday'),
		(2, DATE '2023-07-04', DATE '2023-07-06', 7, 2023, 3, 'Tuesday'),
		(3, DATE '2023-03-01', DATE '2023-03-05', 3, 2023, 1, 'Wednesday')`,
	`INSERT INTO dim_doctor VALUES (1, 'Dr. Smith'), (2, 'Dr. Jones')`,
	`INSERT INTO dim_hospital VALUES (1, 'General'), (2, 'St. Mary')`,
	`INSERT INTO dim_insurance VALUES (1, 'Aetna'), (2, 'Cigna'), (3, 'Medicare')`,
	`INSERT INTO fact_admissions VALUES
		(1, 226942, 1, 1, 1, 1, 1, 100.0, 101, 'Urgent', 'Aspirin', 'Normal'),
		(2, 226942, 2, 3, 1, 1, 2, 150.0, 102, 'Elective', 'Ibuprofen', 'Abnormal'),
		(3, 480261, 1, 2, 2, 2, 3, 200.0, 201, 'Emergency', 'Penicillin', 'Normal'),
		(4, 113817, 3, 2, 2, 2, NULL, NULL, 202, 'Urgent', 'Lipitor', 'Inconclusive')`,
}

// SetupWarehouse returns an in-memory DuckDB adapter loaded with a small
// admissions schema.
func SetupWarehouse(t *testing.T) *duckdb.Adapter {
	t.Helper()

	ctx := context.Background()
	adp := duckdb.New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() {
		_ = adp.Close()
	})

	for _, stmt := range warehouseDDL {
		require.NoError(t, adp.Exec(ctx, stmt))
	}
	return adp
}

// SetupTestStore creates an in-memory run ledger.
func SetupTestStore(t *testing.T) core.Store {
	t.Helper()

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
