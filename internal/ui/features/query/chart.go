package query

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Chart kinds accepted in requests.
const (
	ChartAuto  = "auto"
	ChartBar   = "bar"
	ChartLine  = "line"
	ChartPie   = "pie"
	ChartTable = "table"
)

func validChartType(kind string) bool {
	switch kind {
	case ChartAuto, ChartBar, ChartLine, ChartPie, ChartTable:
		return true
	}
	return false
}

// Chart describes how a result can be plotted. Rendering is left to the client.
type Chart struct {
	Kind         string   `json:"kind"`
	LabelColumn  string   `json:"label_column"`
	ValueColumns []string `json:"value_columns"`
	Title        string   `json:"title"`
}

// BuildChart returns a chart descriptor for the result, or nil when the
// result cannot be charted as requested.
func BuildChart(kind string, columns []string, data []map[string]any) *Chart {
	if len(columns) < 2 || len(data) == 0 {
		return nil
	}

	var numeric []string
	for _, col := range columns[1:] {
		if isNumericColumn(col, data) {
			numeric = append(numeric, col)
		}
	}

	if kind == "" || kind == ChartAuto {
		kind = ChartBar
		if len(columns) == 2 && len(numeric) == 0 {
			kind = ChartTable
		}
	}
	if kind == ChartTable || len(numeric) == 0 {
		return nil
	}

	label := columns[0]
	values := numeric
	if kind == ChartPie {
		values = numeric[:1]
	}

	return &Chart{
		Kind:         kind,
		LabelColumn:  label,
		ValueColumns: values,
		Title:        fmt.Sprintf("%s by %s", humanize(values[0]), humanize(label)),
	}
}

func humanize(col string) string {
	// Casers keep state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(col, "_", " "))
}

// isNumericColumn reports whether every non-null value of col is a number.
// Drivers return NUMERIC values as strings, so numeric text counts.
func isNumericColumn(col string, data []map[string]any) bool {
	seen := false
	for _, row := range data {
		v := row[col]
		if v == nil {
			continue
		}
		if !isNumber(v) {
			return false
		}
		seen = true
	}
	return seen
}

func isNumber(v any) bool {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(val, 64)
		return err == nil
	}
	return false
}
