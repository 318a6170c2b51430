// Package query serves the dashboard's ad-hoc SQL endpoint and its canned
// analysis templates.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/leapstack-labs/healthdw/internal/ui/notifier"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the query feature.
type Handlers struct {
	querier  Querier
	library  *Library
	notifier *notifier.Notifier
	opts     Options
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance. Zero options take the defaults.
func NewHandlers(q Querier, lib *Library, notify *notifier.Notifier, opts Options, logger *slog.Logger) *Handlers {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		querier:  q,
		library:  lib,
		notifier: notify,
		opts:     opts,
		logger:   logger,
	}
}

// Execute runs a read-only query and returns its rows with a chart descriptor.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, failure("Invalid request body: "+err.Error()))
		return
	}

	if req.ChartType != "" && !validChartType(req.ChartType) {
		render.JSON(w, r, failure(fmt.Sprintf("Unknown chart type %q", req.ChartType)))
		return
	}

	stmt, err := CheckReadOnly(req.Query)
	if err != nil {
		render.JSON(w, r, failure(capitalize(err.Error())))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	var resp ExecuteResponse
	err = h.querier.QueryReadOnly(ctx, stmt, func(rows *core.Rows) error {
		return h.collect(rows, &resp)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("query timed out after %s", h.opts.QueryTimeout)
		}
		h.logger.Debug("dashboard query failed", slog.String("error", err.Error()))
		render.JSON(w, r, failure(err.Error()))
		return
	}

	if resp.RowCount == 0 {
		render.JSON(w, r, failure(ErrNoResults))
		return
	}

	resp.Success = true
	resp.QueryMS = time.Since(start).Milliseconds()
	resp.Chart = BuildChart(req.ChartType, resp.Columns, resp.Data)
	resp.ChartGenerated = resp.Chart != nil

	render.JSON(w, r, resp)
}

// collect scans at most MaxRows rows into resp.
func (h *Handlers) collect(rows *core.Rows, resp *ExecuteResponse) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	resp.Columns = cols

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(resp.Data) == h.opts.MaxRows {
			resp.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = jsonValue(values[i])
		}
		resp.Data = append(resp.Data, record)
	}
	resp.RowCount = len(resp.Data)
	return nil
}

// Templates lists the canned analyses.
func (h *Handlers) Templates(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, TemplatesResponse{Templates: h.library.All()})
}

// TemplateEvents patches the template signals on connect and again every
// time the template file is reloaded.
func (h *Handlers) TemplateEvents(w http.ResponseWriter, r *http.Request) {
	ch := h.notifier.Subscribe(notifier.TopicTemplates)
	defer h.notifier.Unsubscribe(notifier.TopicTemplates, ch)

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(TemplatesResponse{Templates: h.library.All()}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if err := sse.MarshalAndPatchSignals(TemplatesResponse{Templates: h.library.All()}); err != nil {
				h.logger.Debug("template stream closed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func failure(msg string) ExecuteResponse {
	return ExecuteResponse{Success: false, Error: msg}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// jsonValue converts a scanned driver value into something encoding/json
// renders faithfully.
func jsonValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		return jsonValue(float64(val))
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	case interface{ Float64() float64 }:
		return jsonValue(val.Float64())
	case fmt.Stringer:
		return val.String()
	}
	return v
}
