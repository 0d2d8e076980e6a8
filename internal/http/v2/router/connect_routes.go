package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/socialconnect/internal/http/v2/middlewares"
)

// RegisterConnectRoutes registra el flujo connect.
//
//	GET    /connect                          estado de todas las conexiones
//	GET    /connect/{provider}               conexiones del provider o callback
//	POST   /connect/{provider}               inicia el connect
//	DELETE /connect/{provider}               elimina todas las del provider
//	DELETE /connect/{provider}/{providerUserID}
//	GET    /connect/{provider}/profile       perfil vía la API del provider
func RegisterConnectRoutes(r chi.Router, deps Deps) {
	c := deps.Controllers.Connect
	if c == nil {
		return
	}
	reconnectCfg := deps.Reconnect
	if reconnectCfg.ConnectPath == "" {
		reconnectCfg.ConnectPath = deps.ConnectPath
	}
	reconnect := mw.WithReconnect(reconnectCfg)

	p := prefix(deps.ConnectPath, "/connect")
	r.Route(p, func(r chi.Router) {
		if len(deps.CORSOrigins) > 0 {
			r.Use(mw.WithCORS(deps.CORSOrigins))
		}
		r.Get("/", c.Status)
		r.Get("/{provider}", c.Provider)
		r.Post("/{provider}", c.Start)
		r.Delete("/{provider}", c.RemoveAll)
		r.Delete("/{provider}/{providerUserID}", c.Remove)
		r.Method("GET", "/{provider}/profile", reconnect(c.Profile))
	})
}
