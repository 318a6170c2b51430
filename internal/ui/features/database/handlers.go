// Package database describes the warehouse the dashboard queries.
package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// Warehouse is the part of a warehouse adapter the schema browser needs.
type Warehouse interface {
	ListColumns(ctx context.Context) ([]core.Column, error)
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
	Exec(ctx context.Context, sql string) error
	DialectConfig() *core.DialectConfig
}

// Handlers provides HTTP handlers for the schema feature.
type Handlers struct {
	warehouse Warehouse
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(w Warehouse) *Handlers {
	return &Handlers{warehouse: w}
}

// Status pings the warehouse.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{Dialect: h.warehouse.DialectConfig().Name}

	if err := h.warehouse.Exec(r.Context(), "SELECT 1"); err != nil {
		status.Message = fmt.Sprintf("Connection failed: %v", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, status)
		return
	}

	status.Connected = true
	status.Message = "Connected"
	render.JSON(w, r, status)
}

// Schema returns every table of the target schema with its columns.
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	cols, err := h.warehouse.ListColumns(r.Context())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	render.JSON(w, r, SchemaResponse{
		Dialect: h.warehouse.DialectConfig().Name,
		Tables:  groupByTable(cols),
	})
}

// Table returns one table's columns and row count.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	meta, err := h.warehouse.GetTableMetadata(r.Context(), name)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	info := TableInfo{
		Name:     meta.Name,
		RowCount: &meta.RowCount,
		Columns:  make([]ColumnMeta, len(meta.Columns)),
	}
	for i, col := range meta.Columns {
		info.Columns[i] = columnMeta(col)
	}
	render.JSON(w, r, info)
}

// groupByTable folds the flat column list, already ordered by table and
// position, into tables.
func groupByTable(cols []core.Column) []TableInfo {
	tables := []TableInfo{}
	for _, col := range cols {
		if n := len(tables); n == 0 || tables[n-1].Name != col.Table {
			tables = append(tables, TableInfo{Name: col.Table})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, columnMeta(col))
	}
	return tables
}

func columnMeta(col core.Column) ColumnMeta {
	return ColumnMeta{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
}
