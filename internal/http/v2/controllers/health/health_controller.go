// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// Pinger es un componente chequeable (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response es el cuerpo de /readyz.
type Response struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthController maneja las rutas de health check.
type HealthController struct {
	components map[string]Pinger
	timeout    time.Duration
}

// NewHealthController crea el controller; components puede ser nil.
func NewHealthController(components map[string]Pinger) *HealthController {
	return &HealthController{components: components, timeout: 2 * time.Second}
}

// Healthz maneja GET /healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
}

// Readyz maneja GET /readyz: pinguea cada componente.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := Response{Status: "ready", Components: make(map[string]string, len(c.components))}
	status := http.StatusOK
	for name, p := range c.components {
		if err := p.Ping(ctx); err != nil {
			log.Warn("component not ready", logger.String("component_name", name), logger.Err(err))
			resp.Components[name] = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	helpers.WriteJSON(w, status, resp)
}
