package database

import "github.com/go-chi/chi/v5"

// SetupRoutes registers the schema routes.
func SetupRoutes(router chi.Router, w Warehouse) {
	handlers := NewHandlers(w)

	router.Get("/api/status", handlers.Status)
	router.Route("/api/schema", func(r chi.Router) {
		r.Get("/", handlers.Schema)
		r.Get("/{table}", handlers.Table)
	})
}
