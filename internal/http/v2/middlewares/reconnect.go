package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// HandlerE es un handler que retorna el error en vez de escribirlo. Lo usan
// las rutas que llaman a la API de un provider.
type HandlerE func(w http.ResponseWriter, r *http.Request) error

// ReconnectConfig configura WithReconnect.
type ReconnectConfig struct {
	Users repository.UsersConnectionRepository
	// ConnectPath es el prefijo del flujo connect (default "/connect").
	ConnectPath string
	// OnRemoved se llama por cada conexión eliminada.
	OnRemoved func(providerID string)
}

// WithReconnect adapta un HandlerE. Si el handler falla con una credencial
// rechazada por el provider (Unauthorized o ExpiredAuthorization) elimina
// la conexión primaria del usuario y redirige al flujo connect. Nunca
// reintenta con la misma credencial. Otros errores se escriben como AppError.
func WithReconnect(cfg ReconnectConfig) func(HandlerE) http.Handler {
	prefix := "/" + strings.Trim(cfg.ConnectPath, "/")
	if prefix == "/" {
		prefix = "/connect"
	}
	return func(h HandlerE) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := h(w, r)
			if err == nil {
				return
			}
			apiErr, ok := connect.AsAPIError(err)
			userID := GetUserID(r.Context())
			if !ok || !apiErr.RequiresReconnect() || userID == "" || cfg.Users == nil {
				errors.Write(w, r, err)
				return
			}

			log := logger.From(r.Context()).With(
				logger.Layer("middleware"),
				logger.Component("middleware.reconnect"),
				logger.ProviderID(apiErr.ProviderID),
				logger.LocalUserID(userID),
			)
			repo, rerr := cfg.Users.CreateConnectionRepository(userID)
			if rerr != nil {
				errors.Write(w, r, rerr)
				return
			}
			conn, rerr := repo.FindPrimaryConnection(r.Context(), apiErr.ProviderID)
			if rerr != nil {
				errors.Write(w, r, rerr)
				return
			}
			if conn != nil {
				if rerr := repo.RemoveConnection(r.Context(), conn.Key()); rerr != nil {
					errors.Write(w, r, rerr)
					return
				}
				if cfg.OnRemoved != nil {
					cfg.OnRemoved(apiErr.ProviderID)
				}
			}
			log.Warn("provider rejected credential, connection removed for reconnect", logger.Err(err))

			target := prefix + "/" + url.PathEscape(apiErr.ProviderID) + "?reconnect=true"
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
