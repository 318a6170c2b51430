package query

import (
	"context"
	"time"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

// Defaults for Options.
const (
	DefaultMaxRows      = 1000
	DefaultQueryTimeout = 30 * time.Second
)

// ErrNoResults is reported when a query succeeds without rows.
const ErrNoResults = "Query returned no results"

// Querier runs a vetted statement against the warehouse.
type Querier interface {
	QueryReadOnly(ctx context.Context, sql string, scan func(*core.Rows) error) error
}

// Options bound each dashboard query.
type Options struct {
	MaxRows      int
	QueryTimeout time.Duration
}

// ExecuteRequest is the body of POST /api/query/execute.
type ExecuteRequest struct {
	Query     string `json:"query"`
	ChartType string `json:"chart_type"`
}

// ExecuteResponse is returned for every execute call. Failures set Success
// false and Error; the HTTP status stays 200.
type ExecuteResponse struct {
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	Columns        []string         `json:"columns,omitempty"`
	Data           []map[string]any `json:"data,omitempty"`
	RowCount       int              `json:"row_count"`
	Truncated      bool             `json:"truncated"`
	QueryMS        int64            `json:"query_ms"`
	Chart          *Chart           `json:"chart"`
	ChartGenerated bool             `json:"chart_generated"`
}

// TemplatesResponse is returned by GET /api/query/templates.
type TemplatesResponse struct {
	Templates []Template `json:"templates"`
}
