package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/rate"
)

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPPathRateKey limita por IP y path: cada provider cuenta aparte.
func IPPathRateKey(r *http.Request) string {
	return clientIP(r) + "|" + r.URL.Path
}

// RateLimitConfig configura el middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
	// Methods limita sólo estos métodos; vacío = todos.
	Methods []string
	// OnLimited se llama con cada request rechazado (métricas).
	OnLimited func(r *http.Request)
}

// WithRateLimit crea un middleware de rate limiting. Si el limiter falla el
// request pasa.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPPathRateKey
	}
	methods := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[strings.ToUpper(m)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(methods) > 0 && !methods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limit error",
					logger.Component("middleware.rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				if cfg.OnLimited != nil {
					cfg.OnLimited(r)
				}
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			next.ServeHTTP(w, r)
		})
	}
}
