package router

import (
	"github.com/go-chi/chi/v5"
)

// RegisterHealthRoutes registra /healthz y /readyz. Sin sesión ni rate limit.
func RegisterHealthRoutes(r chi.Router, deps Deps) {
	c := deps.Controllers.Health
	if c == nil {
		return
	}
	r.Get("/healthz", c.Healthz)
	r.Get("/readyz", c.Readyz)
}
