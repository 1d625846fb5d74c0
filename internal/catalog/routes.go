package catalog

import "github.com/go-chi/chi/v5"

// RegisterRoutes registra las rutas públicas del catálogo.
func RegisterRoutes(route chi.Router, handler *Handler) {
	route.Route("/catalog", func(route chi.Router) {
		route.Get("/", handler.List)
		route.Get("/{id}", handler.GetByID)
	})
}
