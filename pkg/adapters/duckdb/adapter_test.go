package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				tmpDir := t.TempDir()
				return filepath.Join(tmpDir, "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.Exec(ctx, "SELECT 1")
			},
		},
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			err := tt.operation(ctx, adp)
			assert.Error(t, err, "expected error when operating without connection")
		})
	}
}

func TestAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		connect bool
	}{
		{"close without connect", false},
		{"close after connect", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			if tt.connect {
				require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
			}

			assert.NoError(t, adp.Close())
		})
	}
}

func TestAdapter_QueryExecution(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, ctx context.Context, adp *Adapter)
		query     string
		verify    func(t *testing.T, ctx context.Context, adp *Adapter)
		expectErr bool
	}{
		{
			name: "create table and insert",
			setup: func(t *testing.T, ctx context.Context, adp *Adapter) {
				require.NoError(t, adp.Exec(ctx, `
					CREATE TABLE dim_doctor (
						doctor_id INTEGER PRIMARY KEY,
						doctor_name VARCHAR
					)
				`))
			},
			verify: func(t *testing.T, ctx context.Context, adp *Adapter) {
				require.NoError(t, adp.Exec(ctx, `
					INSERT INTO dim_doctor VALUES
						(1, 'Dr. Smith'),
						(2, 'Dr. Jones'),
						(3, 'Dr. Patel')
				`))

				rows, err := adp.Query(ctx, `SELECT COUNT(*) FROM dim_doctor`)
				require.NoError(t, err)
				defer func() { _ = rows.Close() }()

				var count int
				require.True(t, rows.Next())
				require.NoError(t, rows.Scan(&count))
				assert.Equal(t, 3, count)
			},
		},
		{
			name: "select with join and aggregation",
			setup: func(t *testing.T, ctx context.Context, adp *Adapter) {
				require.NoError(t, adp.Exec(ctx, `
					CREATE TABLE dim_hospital (
						hospital_id INTEGER,
						hospital_name VARCHAR
					)
				`))
				require.NoError(t, adp.Exec(ctx, `
					CREATE TABLE fact_admissions (
						hospital_id INTEGER,
						billing_amount DOUBLE,
						admission_date DATE
					)
				`))
				require.NoError(t, adp.Exec(ctx, `
					INSERT INTO dim_hospital VALUES (1, 'General'), (2, 'St. Mary')
				`))
				require.NoError(t, adp.Exec(ctx, `
					INSERT INTO fact_admissions VALUES
						(1, 100.0, '2024-01-01'),
						(1, 150.0, '2024-01-15'),
						(2, 200.0, '2024-01-10')
				`))
			},
			verify: func(t *testing.T, ctx context.Context, adp *Adapter) {
				rows, err := adp.Query(ctx, `
					SELECT
						h.hospital_name,
						SUM(f.billing_amount) AS total_revenue,
						COUNT(*) AS admissions
					FROM fact_admissions f
					JOIN dim_hospital h ON f.hospital_id = h.hospital_id
					GROUP BY h.hospital_name
					ORDER BY total_revenue DESC
				`)
				require.NoError(t, err)
				defer func() { _ = rows.Close() }()

				results := make(map[string]float64)
				for rows.Next() {
					var name string
					var total float64
					var count int
					require.NoError(t, rows.Scan(&name, &total, &count))
					results[name] = total
				}

				assert.InEpsilon(t, 250.0, results["General"], 0.001)
				assert.InEpsilon(t, 200.0, results["St. Mary"], 0.001)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
			defer func() { _ = adp.Close() }()

			if tt.setup != nil {
				tt.setup(t, ctx, adp)
			}
			if tt.verify != nil {
				tt.verify(t, ctx, adp)
			}
		})
	}
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	tests := []struct {
		name        string
		setupTable  func(t *testing.T, ctx context.Context, adp *Adapter)
		tableName   string
		wantErr     bool
		wantColumns int
		wantRows    int64
		checkFunc   func(t *testing.T, meta *core.TableMetadata)
	}{
		{
			name: "existing table with data",
			setupTable: func(t *testing.T, ctx context.Context, adp *Adapter) {
				require.NoError(t, adp.Exec(ctx, `
					CREATE TABLE products (
						product_id INTEGER NOT NULL,
						name VARCHAR,
						price DOUBLE,
						in_stock BOOLEAN
					)
				`))
				require.NoError(t, adp.Exec(ctx, `
					INSERT INTO products VALUES 
						(1, 'Widget', 9.99, true),
						(2, 'Gadget', 19.99, false)
				`))
			},
			tableName:   "products",
			wantColumns: 4,
			wantRows:    2,
			checkFunc: func(t *testing.T, meta *core.TableMetadata) {
				assert.Equal(t, "products", meta.Name)
				assert.Equal(t, "main", meta.Schema)

				expectedColumns := map[string]string{
					"product_id": "INTEGER",
					"name":       "VARCHAR",
					"price":      "DOUBLE",
					"in_stock":   "BOOLEAN",
				}

				for _, col := range meta.Columns {
					expectedType, ok := expectedColumns[col.Name]
					if !ok {
						t.Errorf("unexpected column: %s", col.Name)
						continue
					}
					assert.Equal(t, expectedType, col.Type, "column %s", col.Name)
				}
			},
		},
		{
			name:      "nonexistent table",
			tableName: "nonexistent_table",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
			defer func() { _ = adp.Close() }()

			if tt.setupTable != nil {
				tt.setupTable(t, ctx, adp)
			}

			metadata, err := adp.GetTableMetadata(ctx, tt.tableName)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, metadata.Columns, tt.wantColumns)
			assert.Equal(t, tt.wantRows, metadata.RowCount)

			if tt.checkFunc != nil {
				tt.checkFunc(t, metadata)
			}
		})
	}
}

const healthSchema = `
	CREATE SEQUENCE seq_disease START 1;
	CREATE TABLE dim_disease (
		disease_id INTEGER PRIMARY KEY DEFAULT nextval('seq_disease'),
		medical_condition VARCHAR
	);
	CREATE TABLE fact_admissions (
		disease_id INTEGER,
		billing_amount DECIMAL(12, 2),
		admission_date DATE
	);
`

func connectWithSchema(t *testing.T) *Adapter {
	t.Helper()
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	require.NoError(t, adp.Exec(ctx, healthSchema))
	return adp
}

func countRows(t *testing.T, adp *Adapter, table string) int {
	t.Helper()
	rows, err := adp.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}

func TestAdapter_AppendRows(t *testing.T) {
	adp := connectWithSchema(t)
	ctx := context.Background()

	n, err := adp.AppendRows(ctx, "dim_disease", []string{"medical_condition"},
		[][]any{{"Diabetes"}, {"Asthma"}, {"Cancer"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 3, countRows(t, adp, "dim_disease"))

	admitted := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	n, err = adp.AppendRows(ctx, "fact_admissions", []string{"disease_id", "billing_amount", "admission_date"},
		[][]any{{int64(1), 1500.0, admitted}, {nil, 20.5, admitted}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var nullKeys int
	err = adp.QueryReadOnly(ctx, "SELECT COUNT(*) FROM fact_admissions WHERE disease_id IS NULL", func(rows *core.Rows) error {
		require.True(t, rows.Next())
		return rows.Scan(&nullKeys)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, nullKeys)
}

func TestAdapter_Truncate(t *testing.T) {
	adp := connectWithSchema(t)
	ctx := context.Background()

	_, err := adp.AppendRows(ctx, "dim_disease", []string{"medical_condition"}, [][]any{{"Diabetes"}})
	require.NoError(t, err)
	_, err = adp.AppendRows(ctx, "fact_admissions", []string{"disease_id"}, [][]any{{int64(1)}})
	require.NoError(t, err)

	require.NoError(t, adp.Truncate(ctx, []string{"fact_admissions", "dim_disease"}))
	assert.Equal(t, 0, countRows(t, adp, "fact_admissions"))
	assert.Equal(t, 0, countRows(t, adp, "dim_disease"))

	err = adp.Truncate(ctx, []string{"missing_table"})
	assert.Error(t, err)
}

func TestAdapter_TruncateRestartsKeys(t *testing.T) {
	adp := connectWithSchema(t)
	ctx := context.Background()

	conditions := [][]any{{"Diabetes"}, {"Asthma"}, {"Cancer"}}
	load := func() []int64 {
		t.Helper()
		_, err := adp.AppendRows(ctx, "dim_disease", []string{"medical_condition"}, conditions)
		require.NoError(t, err)

		rows, err := adp.Query(ctx, "SELECT disease_id FROM dim_disease ORDER BY disease_id")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		var ids []int64
		for rows.Next() {
			var id int64
			require.NoError(t, rows.Scan(&id))
			ids = append(ids, id)
		}
		require.NoError(t, rows.Err())
		return ids
	}

	first := load()
	require.NoError(t, adp.Truncate(ctx, []string{"fact_admissions", "dim_disease"}))
	second := load()

	assert.Equal(t, []int64{1, 2, 3}, first)
	assert.Equal(t, first, second)

	// the recreated tables keep their columns and defaults
	cols, err := adp.ListColumns(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range cols {
		if c.Table == "fact_admissions" {
			names = append(names, c.Name)
		}
	}
	assert.Equal(t, []string{"disease_id", "billing_amount", "admission_date"}, names)
}

func TestConnect_ReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dw.duckdb")

	rw := New(nil)
	require.NoError(t, rw.Connect(ctx, core.AdapterConfig{Path: path}))
	require.NoError(t, rw.Exec(ctx, healthSchema))
	_, err := rw.AppendRows(ctx, "dim_disease", []string{"medical_condition"}, [][]any{{"Diabetes"}})
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro := New(nil)
	require.NoError(t, ro.Connect(ctx, core.AdapterConfig{
		Path:   path,
		Params: map[string]any{"read_only": true},
	}))
	t.Cleanup(func() { _ = ro.Close() })

	assert.Equal(t, 1, countRows(t, ro, "dim_disease"))
	assert.Error(t, ro.Exec(ctx, "DELETE FROM dim_disease"))
	assert.Equal(t, 1, countRows(t, ro, "dim_disease"))
}

func TestAdapter_ListColumns(t *testing.T) {
	adp := connectWithSchema(t)

	cols, err := adp.ListColumns(context.Background())
	require.NoError(t, err)

	byTable := map[string][]string{}
	for _, c := range cols {
		byTable[c.Table] = append(byTable[c.Table], c.Name)
	}
	assert.Equal(t, []string{"disease_id", "medical_condition"}, byTable["dim_disease"])
	assert.Equal(t, []string{"disease_id", "billing_amount", "admission_date"}, byTable["fact_admissions"])
}

func TestConnect_WithSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	cfg := core.AdapterConfig{
		Path: ":memory:",
		Params: map[string]any{
			"settings": map[string]any{
				"threads": "2",
			},
		},
	}

	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, "SELECT current_setting('threads')")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())

	var threads string
	require.NoError(t, rows.Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestConnect_WithInvalidParams(t *testing.T) {
	adp := New(nil)

	err := adp.Connect(context.Background(), core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"unknown": true},
	})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}
