// Package router arma las rutas HTTP del servicio sobre chi.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	mw "github.com/dropDatabas3/socialconnect/internal/http/v2/middlewares"
	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/rate"
	"github.com/dropDatabas3/socialconnect/internal/session"
)

// Deps contiene todo lo que necesitan las rutas.
type Deps struct {
	Controllers *controllers.Controllers
	Sessions    *session.Store
	Metrics     *metrics.Metrics // opcional
	RateLimiter rate.Limiter     // opcional: limita el inicio de los flujos

	Reconnect   mw.ReconnectConfig
	SignInPath  string
	ConnectPath string
	CORSOrigins []string
}

func prefix(p, def string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return def
	}
	return p
}

// New crea el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	base := []func(http.Handler) http.Handler{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	}
	if deps.Metrics != nil {
		base = append(base, deps.Metrics.Middleware)
	}
	r.Use(base...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	RegisterHealthRoutes(r, deps)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithSecurityHeaders(),
			mw.WithNoStore(),
			deps.Sessions.Middleware,
			mw.WithRateLimit(mw.RateLimitConfig{
				Limiter:   deps.RateLimiter,
				Methods:   []string{http.MethodPost},
				OnLimited: onLimited(deps.Metrics),
			}),
		)
		RegisterSignInRoutes(r, deps)
		RegisterConnectRoutes(r, deps)
	})
	return r
}

func onLimited(m *metrics.Metrics) func(*http.Request) {
	if m == nil {
		return nil
	}
	return func(r *http.Request) {
		pattern := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		m.RateLimited(pattern)
	}
}
