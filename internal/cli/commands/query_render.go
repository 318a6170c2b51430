package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

func renderResults(w io.Writer, rows *sql.Rows, format string) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	return renderRows(w, cols, results, format)
}

func renderRows(w io.Writer, cols []string, results []map[string]any, format string) error {
	switch format {
	case "json":
		return renderJSON(w, results)
	case "csv":
		return renderCSV(w, cols, results)
	case "md", "markdown":
		return renderMarkdown(w, cols, results)
	default:
		return renderTable(w, cols, results)
	}
}

func renderTable(w io.Writer, cols []string, results []map[string]any) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, result := range results {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(results))
	return nil
}

func renderJSON(w io.Writer, results []map[string]any) error {
	if results == nil {
		results = []map[string]any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderCSV(w io.Writer, cols []string, results []map[string]any) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))

	for _, result := range results {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(result[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, results []map[string]any) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, result := range results {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = strings.ReplaceAll(formatValue(result[col]), "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// columnLister lists warehouse columns.
type columnLister interface {
	ListColumns(ctx context.Context) ([]core.Column, error)
}

// listTables prints one row per warehouse table with its column count.
func listTables(ctx context.Context, w io.Writer, wh columnLister, format string) error {
	columns, err := wh.ListColumns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	counts := map[string]int{}
	for _, c := range columns {
		counts[c.Table]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]map[string]any, 0, len(names))
	for _, name := range names {
		results = append(results, map[string]any{"table": name, "columns": counts[name]})
	}
	return renderRows(w, []string{"table", "columns"}, results, format)
}

// metadataReader reads table metadata.
type metadataReader interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}

// columnInfo represents schema column information.
type columnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable string `json:"nullable"`
}

type schemaOutput struct {
	Schema   string       `json:"schema"`
	Name     string       `json:"name"`
	RowCount int64        `json:"row_count"`
	Columns  []columnInfo `json:"columns"`
}

func showSchema(ctx context.Context, w io.Writer, wh metadataReader, tableName, format string) error {
	meta, err := wh.GetTableMetadata(ctx, tableName)
	if err != nil {
		return err
	}

	columns := make([]columnInfo, len(meta.Columns))
	for i, c := range meta.Columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		columns[i] = columnInfo{Name: c.Name, Type: c.Type, Nullable: nullable}
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(schemaOutput{Schema: meta.Schema, Name: meta.Name, RowCount: meta.RowCount, Columns: columns})
	}

	_, _ = fmt.Fprintf(w, "Table: %s.%s (%d rows)\n", meta.Schema, meta.Name, meta.RowCount)
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 60))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Nullable"})
	for _, col := range columns {
		t.AppendRow(table.Row{col.Name, col.Type, col.Nullable})
	}
	t.Render()
	return nil
}

// listTemplates prints the canned analyses.
func listTemplates(w io.Writer, lib *query.Library, format string) error {
	templates := lib.All()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(templates)
	}

	results := make([]map[string]any, len(templates))
	for i, t := range templates {
		results[i] = map[string]any{"key": t.Key, "name": t.Name, "chart": t.ChartType}
	}
	return renderRows(w, []string{"key", "name", "chart"}, results, format)
}
