package router

import (
	"github.com/go-chi/chi/v5"
)

// RegisterSignInRoutes registra el filtro de sign-in y el registro pendiente.
//
//	POST /signin/{provider}   inicia el sign-in
//	GET  /signin/{provider}   callback (code | oauth_token)
//	GET  /signup/pending      conexión esperando registro
//	POST /signup/complete     vincula la conexión al usuario registrado
func RegisterSignInRoutes(r chi.Router, deps Deps) {
	c := deps.Controllers.SignIn
	if c == nil {
		return
	}
	p := prefix(deps.SignInPath, "/signin")
	r.Post(p+"/{provider}", c.Provider)
	r.Get(p+"/{provider}", c.Provider)
	r.Get("/signup/pending", c.Pending)
	r.Post("/signup/complete", c.Complete)
}
