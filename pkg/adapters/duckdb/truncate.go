package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/healthdw/pkg/adapter"
)

var nextvalPattern = regexp.MustCompile(`nextval\('([^']+)'\)`)

// tableDef is a table's catalog DDL and the sequences its defaults draw from.
type tableDef struct {
	name      string
	ddl       string
	sequences []string
}

// sequenceDef is what is needed to recreate a sequence at its start value.
type sequenceDef struct {
	name      string
	start     int64
	increment int64
}

// Truncate empties the tables and restarts the sequences behind their
// surrogate keys, so a reload assigns the same keys. DuckDB refuses to drop a
// sequence a column default depends on, so the tables are dropped and
// recreated from their catalog DDL in one transaction.
func (a *Adapter) Truncate(ctx context.Context, tables []string) (err error) {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	defs := make([]tableDef, 0, len(tables))
	var seqs []sequenceDef
	seen := make(map[string]struct{})
	for _, table := range tables {
		def, derr := loadTableDef(ctx, tx, table)
		if derr != nil {
			return derr
		}
		defs = append(defs, def)

		for _, name := range def.sequences {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			seq, serr := loadSequenceDef(ctx, tx, name)
			if serr != nil {
				return serr
			}
			seqs = append(seqs, seq)
		}
	}

	for _, def := range defs {
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+adapter.QuoteIdentifier(def.name)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", def.name, err)
		}
	}
	for _, seq := range seqs {
		if _, err = tx.ExecContext(ctx, "DROP SEQUENCE "+adapter.QuoteIdentifier(seq.name)); err != nil {
			return fmt.Errorf("failed to reset sequence %s: %w", seq.name, err)
		}
		create := fmt.Sprintf("CREATE SEQUENCE %s START WITH %d INCREMENT BY %d",
			adapter.QuoteIdentifier(seq.name), seq.start, seq.increment)
		if _, err = tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("failed to reset sequence %s: %w", seq.name, err)
		}
	}
	// Recreate in reverse so referenced dimensions exist before the fact
	for i := len(defs) - 1; i >= 0; i-- {
		if _, err = tx.ExecContext(ctx, defs[i].ddl); err != nil {
			return fmt.Errorf("failed to recreate %s: %w", defs[i].name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit truncate: %w", err)
	}
	return nil
}

func loadTableDef(ctx context.Context, tx *sql.Tx, table string) (tableDef, error) {
	schema, name := adapter.ParseQualifiedName(table, dialectConfig)
	def := tableDef{name: table}

	err := tx.QueryRowContext(ctx,
		`SELECT sql FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?`,
		schema, name).Scan(&def.ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return def, fmt.Errorf("failed to clear %s: table not found", table)
	}
	if err != nil {
		return def, fmt.Errorf("failed to read definition of %s: %w", table, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT column_default FROM duckdb_columns()
		WHERE schema_name = ? AND table_name = ? AND column_default LIKE 'nextval(%'
		ORDER BY column_index`,
		schema, name)
	if err != nil {
		return def, fmt.Errorf("failed to read defaults of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var expr string
		if err := rows.Scan(&expr); err != nil {
			return def, fmt.Errorf("failed to read defaults of %s: %w", table, err)
		}
		if m := nextvalPattern.FindStringSubmatch(expr); m != nil {
			def.sequences = append(def.sequences, m[1])
		}
	}
	return def, rows.Err()
}

func loadSequenceDef(ctx context.Context, tx *sql.Tx, name string) (sequenceDef, error) {
	seq := sequenceDef{name: name}
	bare := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		bare = name[i+1:]
	}

	err := tx.QueryRowContext(ctx,
		`SELECT start_value, increment_by FROM duckdb_sequences() WHERE sequence_name = ?`,
		bare).Scan(&seq.start, &seq.increment)
	if err != nil {
		return seq, fmt.Errorf("failed to read sequence %s: %w", name, err)
	}
	return seq, nil
}
