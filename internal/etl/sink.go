package etl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/healthdw/pkg/adapter"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// Sink writes the star schema through a warehouse adapter.
type Sink struct {
	adapter   core.Adapter
	batchSize int
	logger    *slog.Logger
}

// NewSink wraps adp. A batchSize of zero sends each table in one append.
func NewSink(adp core.Adapter, batchSize int, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{adapter: adp, batchSize: batchSize, logger: logger}
}

// Clear empties every warehouse table, fact table first.
func (s *Sink) Clear(ctx context.Context) error {
	if err := s.adapter.Truncate(ctx, ClearOrder); err != nil {
		return fmt.Errorf("failed to clear warehouse: %w", err)
	}
	return nil
}

// Append bulk inserts rows into table and returns the number written.
func (s *Sink) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	size := s.batchSize
	if size <= 0 {
		size = len(rows)
	}

	var total int64
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		n, err := s.adapter.AppendRows(ctx, table, columns, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
		s.logger.Debug("appended batch", "table", table, "rows", n, "total", total)
	}
	return total, nil
}

// KeyMap reads the (key, natural key) projection of a dimension table.
func (s *Sink) KeyMap(ctx context.Context, table, keyColumn, naturalColumn string) (KeyMap, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", //nolint:gosec // identifiers are fixed and quoted
		adapter.QuoteIdentifier(keyColumn),
		adapter.QuoteIdentifier(naturalColumn),
		adapter.QuoteIdentifier(table))

	rows, err := s.adapter.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	m := make(KeyMap)
	for rows.Next() {
		var key sql.NullInt64
		var natural any
		if err := rows.Scan(&key, &natural); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", table, err)
		}
		if !key.Valid || natural == nil {
			continue
		}
		m[naturalKey(natural)] = key.Int64
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s keys: %w", table, err)
	}
	return m, nil
}

// naturalKey renders a scanned natural key the way admissions are matched:
// dates as YYYY-MM-DD, everything else as text.
func naturalKey(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format(DateKeyLayout)
	case []byte:
		return dateOrText(string(val))
	case string:
		return dateOrText(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// dateOrText normalizes date strings such as "2023-01-10T00:00:00Z" and
// returns anything else unchanged.
func dateOrText(s string) string {
	if len(s) > len(DateKeyLayout) {
		if t, ok := ParseDate(s, []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04:05-07"}); ok {
			return t.Format(DateKeyLayout)
		}
	}
	return s
}
