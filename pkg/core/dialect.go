package core

import "fmt"

// DialectConfig holds the static configuration for a warehouse SQL dialect.
type DialectConfig struct {
	// Name is the dialect identifier ("duckdb", "postgres").
	Name string

	// DefaultSchema is "main" for DuckDB and "public" for Postgres.
	DefaultSchema string

	// Placeholder defines how query parameters are formatted.
	Placeholder PlaceholderStyle
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// FormatPlaceholder returns the placeholder for the 1-based parameter index.
func (d *DialectConfig) FormatPlaceholder(index int) string {
	if d.Placeholder == PlaceholderDollar {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}
