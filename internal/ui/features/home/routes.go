package home

import (
	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(router chi.Router, dialect string, store core.Store, lib *query.Library) {
	handlers := NewHandlers(dialect, store, lib)

	router.Get("/", handlers.Overview)
	router.Get("/api", handlers.Overview)
}
