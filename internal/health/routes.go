package health

import "github.com/go-chi/chi/v5"

// RegisterRoutes registra liveness, readiness y el estado de componentes.
func RegisterRoutes(route chi.Router, handler *Handler) {
	route.Get("/health", handler.Health)
	route.Get("/health/components", handler.Components)
	route.Get("/ready", handler.Ready)
}
