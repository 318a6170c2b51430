package query

import "github.com/go-chi/chi/v5"

// SetupRoutes registers the query endpoints on r.
func SetupRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/query", func(r chi.Router) {
		r.Post("/execute", h.Execute)
		r.Get("/templates", h.Templates)
		r.Get("/templates/events", h.TemplateEvents)
	})
}
