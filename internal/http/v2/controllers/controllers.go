// Package controllers agrupa los controllers HTTP.
//
// Flujo de inicialización:
//
//  1. social.* (filter, connector, services) ← wiring en server
//  2. ctrls := controllers.New(deps)
//  3. router.New(router.Deps{Controllers: ctrls, ...})
package controllers

import (
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/connections"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/health"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/signin"
)

// Controllers agrupa los controllers de cada dominio.
type Controllers struct {
	Connect *connections.ConnectController
	SignIn  *signin.SignInController
	Health  *health.HealthController
}

// Deps agrupa las dependencias de cada controller.
type Deps struct {
	Connect      connections.Deps
	SignIn       signin.Deps
	HealthChecks map[string]health.Pinger
}

// New crea todos los controllers.
func New(d Deps) (*Controllers, error) {
	connectCtrl, err := connections.NewConnectController(d.Connect)
	if err != nil {
		return nil, err
	}
	signinCtrl, err := signin.NewSignInController(d.SignIn)
	if err != nil {
		return nil, err
	}
	return &Controllers{
		Connect: connectCtrl,
		SignIn:  signinCtrl,
		Health:  health.NewHealthController(d.HealthChecks),
	}, nil
}
