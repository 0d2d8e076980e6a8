package middlewares

import (
	"net/http"
	"strings"
)

// isHTTPS detecta si el request llegó por HTTPS (directo o detrás de proxy).
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// WithSecurityHeaders inyecta cabeceras de seguridad por defecto.
// El servicio sólo responde JSON y redirects.
func WithSecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			// no-referrer evita filtrar code/state en el Referer
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

			if isHTTPS(r) {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
