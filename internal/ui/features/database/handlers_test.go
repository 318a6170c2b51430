package database

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/healthdw/internal/ui/features"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	SetupRoutes(r, features.SetupWarehouse(t))
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSchema(t *testing.T) {
	w := get(t, newRouter(t), "/api/schema")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "duckdb", resp.Dialect)

	names := make([]string, len(resp.Tables))
	for i, tbl := range resp.Tables {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{
		"dim_disease", "dim_doctor", "dim_hospital", "dim_insurance",
		"dim_patient", "dim_time", "fact_admissions",
	}, names)

	hospital := resp.Tables[2]
	require.Len(t, hospital.Columns, 2)
	assert.Equal(t, "hospital_id", hospital.Columns[0].Name)
	assert.Equal(t, "hospital_name", hospital.Columns[1].Name)
	assert.Nil(t, hospital.RowCount)
}

func TestTable(t *testing.T) {
	r := newRouter(t)

	w := get(t, r, "/api/schema/fact_admissions")
	require.Equal(t, http.StatusOK, w.Code)

	var info TableInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "fact_admissions", info.Name)
	require.NotNil(t, info.RowCount)
	assert.EqualValues(t, 4, *info.RowCount)
	assert.Len(t, info.Columns, 12)

	w = get(t, r, "/api/schema/no_such_table")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus(t *testing.T) {
	w := get(t, newRouter(t), "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Connected)
	assert.Equal(t, "duckdb", status.Dialect)
}

func TestGroupByTable(t *testing.T) {
	cols := []core.Column{
		{Table: "a", Name: "x", Type: "INTEGER", Position: 1},
		{Table: "a", Name: "y", Type: "VARCHAR", Nullable: true, Position: 2},
		{Table: "b", Name: "z", Type: "DATE", Position: 1},
	}

	got := groupByTable(cols)
	require.Len(t, got, 2)
	assert.Equal(t, []ColumnMeta{{"x", "INTEGER", false}, {"y", "VARCHAR", true}}, got[0].Columns)
	assert.Equal(t, "b", got[1].Name)

	assert.Empty(t, groupByTable(nil))
}
