package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

// DefaultInsertBatch is the number of rows AppendRowsCommon packs into one INSERT.
const DefaultInsertBatch = 500

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query, truncate and bulk insert implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// QueryReadOnlyCommon runs sqlStr and passes the open rows to scan. When
// readOnlyTx is set the statement runs inside a READ ONLY transaction that is
// always rolled back.
func (b *BaseSQLAdapter) QueryReadOnlyCommon(ctx context.Context, sqlStr string, readOnlyTx bool, scan func(*core.Rows) error) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	run := func(q interface {
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	}) error {
		rows, err := q.QueryContext(ctx, sqlStr)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		if err := scan(&core.Rows{Rows: rows}); err != nil {
			return err
		}
		return rows.Err()
	}

	if !readOnlyTx {
		return run(b.DB)
	}

	tx, err := b.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return run(tx)
}

// QuoteIdentifier quotes each dot-separated part of an identifier.
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *core.DialectConfig) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

// schemaFor returns the configured schema or the dialect default.
func (b *BaseSQLAdapter) schemaFor(d *core.DialectConfig) string {
	if b.Cfg.Schema != "" {
		return b.Cfg.Schema
	}
	return d.DefaultSchema
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string, d *core.DialectConfig) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := ParseQualifiedName(table, d)

	//nolint:gosec // Placeholders are safe - they come from DialectConfig.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	columns, err := b.scanColumns(ctx, query, schema, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdentifier(schema+"."+tableName)) //nolint:gosec // Table names are from metadata
	var rowCount int64
	if err := b.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		// Non-fatal error, just set to 0
		rowCount = 0
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// ListColumnsCommon returns the columns of every table in the adapter's
// schema ordered by table and position.
func (b *BaseSQLAdapter) ListColumnsCommon(ctx context.Context, d *core.DialectConfig) ([]core.Column, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:gosec // Placeholder comes from DialectConfig.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s
		ORDER BY table_name, ordinal_position
	`, d.FormatPlaceholder(1))

	return b.scanColumns(ctx, query, b.schemaFor(d))
}

func (b *BaseSQLAdapter) scanColumns(ctx context.Context, query string, args ...any) ([]core.Column, error) {
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Table, &col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

// AppendRowsCommon inserts rows using multi-row INSERT statements of at most
// DefaultInsertBatch rows each, all inside one transaction.
func (b *BaseSQLAdapter) AppendRowsCommon(ctx context.Context, table string, columns []string, rows [][]any, d *core.DialectConfig) (n int64, err error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for start := 0; start < len(rows); start += DefaultInsertBatch {
		end := min(start+DefaultInsertBatch, len(rows))
		batch := rows[start:end]

		stmt, args, buildErr := BuildInsert(table, columns, batch, d)
		if buildErr != nil {
			return 0, buildErr
		}
		res, execErr := tx.ExecContext(ctx, stmt, args...)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, execErr)
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			affected = int64(len(batch))
		}
		n += affected
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}

	b.log().Debug("appended rows", slog.String("table", table), slog.Int64("rows", n))
	return n, nil
}

// BuildInsert renders a multi-row INSERT for rows and returns it with the
// flattened arguments.
func BuildInsert(table string, columns []string, rows [][]any, d *core.DialectConfig) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns given for %s", table)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", QuoteIdentifier(table), strings.Join(quoted, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	idx := 1
	for r, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row %d of %s has %d values, want %d", r, table, len(row), len(columns))
		}
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range row {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.FormatPlaceholder(idx))
			idx++
		}
		sb.WriteByte(')')
		args = append(args, row...)
	}
	return sb.String(), args, nil
}
