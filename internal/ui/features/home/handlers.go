// Package home serves the dashboard overview.
package home

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// Overview is returned by GET /api.
type Overview struct {
	Name      string    `json:"name"`
	Dialect   string    `json:"dialect"`
	LatestRun *core.Run `json:"latest_run"`
	Templates int       `json:"templates"`
	Endpoints []string  `json:"endpoints"`
}

var endpoints = []string{
	"POST /api/query/execute",
	"GET /api/query/templates",
	"GET /api/query/templates/events",
	"GET /api/schema",
	"GET /api/schema/{table}",
	"GET /api/status",
	"GET /api/runs",
	"GET /api/runs/{id}",
	"GET /healthz",
}

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	dialect string
	store   core.Store
	library *query.Library
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(dialect string, store core.Store, lib *query.Library) *Handlers {
	return &Handlers{dialect: dialect, store: store, library: lib}
}

// Overview reports the warehouse dialect, the latest ETL run and the API surface.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	latest, err := h.store.GetLatestRun()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}

	render.JSON(w, r, Overview{
		Name:      "healthdw",
		Dialect:   h.dialect,
		LatestRun: latest,
		Templates: len(h.library.All()),
		Endpoints: endpoints,
	})
}
