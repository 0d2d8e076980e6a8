package middlewares

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dropDatabas3/socialconnect/internal/session"
)

type ctxKey string

// ctxRequestIDKey guarda el request ID
const ctxRequestIDKey ctxKey = "request_id"

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserID retorna el usuario autenticado de la sesión del request, o "".
func GetUserID(ctx context.Context) string {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return ""
	}
	return sess.UserID()
}

// WithRequestID genera o propaga un Request ID único para cada request.
// Si el cliente envía X-Request-ID, lo usa. Si no, genera uno nuevo.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" || len(rid) > 128 {
				var b [16]byte
				_, _ = rand.Read(b[:])
				rid = hex.EncodeToString(b[:])
			}
			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), rid)))
		})
	}
}
