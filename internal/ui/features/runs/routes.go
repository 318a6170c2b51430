package runs

import (
	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

// SetupRoutes registers the run history routes.
func SetupRoutes(router chi.Router, store core.Store) {
	handlers := NewHandlers(store)

	router.Route("/api/runs", func(r chi.Router) {
		r.Get("/", handlers.List)
		r.Get("/{id}", handlers.Detail)
	})
}
