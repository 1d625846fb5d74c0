package staff

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registra las rutas de staff. guard puede ser nil (sin protección).
func RegisterRoutes(route chi.Router, handler *Handler, guard func(http.Handler) http.Handler) {
	route.Route("/staff", func(route chi.Router) {
		if guard != nil {
			route.Use(guard)
		}

		route.Get("/subcategories", handler.Subcategories)
		route.Get("/types", handler.Types)

		route.Route("/items", func(route chi.Router) {
			route.Get("/", handler.List)
			route.Post("/", handler.Create)
			route.Get("/count", handler.Count)
			route.Get("/{id}", handler.GetByID)
			route.Patch("/{id}", handler.Patch)
			route.Delete("/{id}", handler.Delete)
		})
	})
}
