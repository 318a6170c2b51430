// Package router sets up HTTP routes for the dashboard server.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	databaseFeature "github.com/leapstack-labs/healthdw/internal/ui/features/database"
	homeFeature "github.com/leapstack-labs/healthdw/internal/ui/features/home"
	queryFeature "github.com/leapstack-labs/healthdw/internal/ui/features/query"
	runsFeature "github.com/leapstack-labs/healthdw/internal/ui/features/runs"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Warehouse core.Adapter
	Store     core.Store
	Library   *queryFeature.Library
	Query     *queryFeature.Handlers
}

// New returns a mux with the standard middleware stack and every route.
func New(deps Deps) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
		middleware.Heartbeat("/healthz"),
	)
	SetupRoutes(r, deps)
	return r
}

// SetupRoutes configures all routes for the dashboard server.
func SetupRoutes(router chi.Router, deps Deps) {
	homeFeature.SetupRoutes(router, deps.Warehouse.DialectConfig().Name, deps.Store, deps.Library)
	queryFeature.SetupRoutes(router, deps.Query)
	databaseFeature.SetupRoutes(router, deps.Warehouse)
	runsFeature.SetupRoutes(router, deps.Store)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "not found"})
	})
}
