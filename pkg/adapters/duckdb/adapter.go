// Package duckdb provides a DuckDB warehouse adapter for healthdw.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/healthdw/pkg/adapter"
	"github.com/leapstack-labs/healthdw/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

var dialectConfig = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return dialectConfig
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening duckdb", slog.String("path", path), slog.Bool("read_only", params.ReadOnly))

	dsn := path
	if params.ReadOnly && path != ":memory:" {
		dsn += "?access_mode=READ_ONLY"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range params.statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply duckdb param %q: %w", stmt, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, dialectConfig)
}

// ListColumns returns the columns of every table in the target schema.
func (a *Adapter) ListColumns(ctx context.Context) ([]core.Column, error) {
	return a.ListColumnsCommon(ctx, dialectConfig)
}

// QueryReadOnly runs sqlStr on a plain connection. The duckdb driver refuses
// read-only transactions, so callers must vet the statement themselves or
// connect with the read_only param.
func (a *Adapter) QueryReadOnly(ctx context.Context, sqlStr string, scan func(*core.Rows) error) error {
	return a.QueryReadOnlyCommon(ctx, sqlStr, false, scan)
}

// AppendRows bulk inserts rows with batched multi-row INSERT statements.
func (a *Adapter) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return a.AppendRowsCommon(ctx, table, columns, rows, dialectConfig)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
