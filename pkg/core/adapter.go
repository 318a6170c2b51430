package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the warehouse.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the warehouse connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// QueryReadOnly executes a statement in the most restrictive mode the
	// warehouse offers and hands the open rows to scan.
	QueryReadOnly(ctx context.Context, sql string, scan func(*Rows) error) error

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// ListColumns returns every column of every table in the target schema.
	ListColumns(ctx context.Context) ([]Column, error)

	// Truncate empties the given tables in order inside one transaction and
	// restarts the sequences behind their surrogate keys.
	Truncate(ctx context.Context, tables []string) error

	// AppendRows bulk inserts rows into table and returns the number written.
	AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// DialectConfig returns the static dialect configuration.
	DialectConfig() *DialectConfig
}

// AdapterConfig holds configuration for connecting to a warehouse.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a warehouse table.
type Column struct {
	Table    string
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about a warehouse table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
