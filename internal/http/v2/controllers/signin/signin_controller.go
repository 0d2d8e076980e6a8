// Package signin expone el filtro de sign-in social y la finalización del
// registro pendiente.
package signin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/socialconnect/internal/http/v2/dto/connect"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/session"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

// ChangeRecorder recibe las conexiones creadas al completar un registro.
type ChangeRecorder interface {
	ConnectionChanged(providerID, op string)
}

// Deps contiene las dependencias del controller.
type Deps struct {
	Filter   *social.Filter
	Utils    *social.SignInUtils
	Sessions *session.Store
	Recorder ChangeRecorder
}

// SignInController maneja /signin/{provider} y /signup.
type SignInController struct {
	filter   *social.Filter
	utils    *social.SignInUtils
	sessions *session.Store
	recorder ChangeRecorder
}

func NewSignInController(d Deps) (*SignInController, error) {
	if d.Filter == nil || d.Utils == nil || d.Sessions == nil {
		return nil, errors.New("signin: controller requires filter, utils and sessions")
	}
	return &SignInController{filter: d.Filter, utils: d.Utils, sessions: d.Sessions, recorder: d.Recorder}, nil
}

// Provider maneja POST /signin/{provider} y el callback GET.
func (c *SignInController) Provider(w http.ResponseWriter, r *http.Request) {
	c.filter.Handle(w, r, chi.URLParam(r, "provider"))
}

func (c *SignInController) session(r *http.Request) (*session.Session, error) {
	if sess, err := session.FromContext(r.Context()); err == nil {
		return sess, nil
	}
	return c.sessions.Load(r.Context(), r)
}

// Pending maneja GET /signup/pending: la conexión que espera el registro.
func (c *SignInController) Pending(w http.ResponseWriter, r *http.Request) {
	sess, err := c.session(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	conn, err := c.utils.ConnectionFromSession(sess)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if conn == nil {
		httperrors.WriteError(w, httperrors.ErrNoPendingSignUp)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PendingSignUpResponse{Connection: dto.FromConnection(conn)})
}

// Complete maneja POST /signup/complete: la aplicación ya registró al
// usuario y lo autenticó en la sesión; se vincula la conexión pendiente.
func (c *SignInController) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SignInController.Complete"))

	sess, err := c.session(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	userID := sess.UserID()
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	conn, err := c.utils.ConnectionFromSession(sess)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if conn == nil {
		httperrors.WriteError(w, httperrors.ErrNoPendingSignUp)
		return
	}

	if err := c.utils.DoPostSignUp(ctx, sess, userID); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if err := c.sessions.Save(ctx, w, sess); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	key := conn.Key()
	if c.recorder != nil {
		c.recorder.ConnectionChanged(key.ProviderID, "added")
	}
	log.Info("pending connection linked after sign up",
		logger.LocalUserID(userID),
		logger.ProviderID(key.ProviderID),
		logger.ProviderUserID(key.ProviderUserID),
	)
	helpers.WriteJSON(w, http.StatusCreated, dto.PendingSignUpResponse{Connection: dto.FromConnection(conn)})
}
