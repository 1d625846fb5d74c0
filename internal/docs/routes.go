package docs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta Swagger UI y el YAML de OpenAPI bajo /docs.
func RegisterRoutes(route chi.Router) {
	// /docs sin slash redirige para que los paths relativos de la UI resuelvan
	route.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})

	route.Route("/docs", func(route chi.Router) {
		route.Get("/", SwaggerUIHandler())
		route.Get("/openapi.yaml", OpenAPIHandler())
	})
}
