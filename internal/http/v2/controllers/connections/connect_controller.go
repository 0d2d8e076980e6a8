// Package connections contiene el controller del flujo connect: vincular,
// listar y desvincular cuentas de providers del usuario en sesión.
package connections

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	dto "github.com/dropDatabas3/socialconnect/internal/http/v2/dto/connect"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/helpers"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/session"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

// Operaciones reportadas a Recorder.ConnectionChanged.
const (
	OpAdded   = "added"
	OpRemoved = "removed"
)

// Recorder recibe los resultados del flujo y los cambios de conexiones.
type Recorder interface {
	social.OutcomeRecorder
	ConnectionChanged(providerID, op string)
}

type nopRecorder struct{}

func (nopRecorder) Outcome(string, string, string)   {}
func (nopRecorder) ConnectionChanged(string, string) {}

// Deps contiene las dependencias del controller.
type Deps struct {
	Services  *social.ServiceRegistry
	Connector *social.Connector
	Users     repository.UsersConnectionRepository
	Sessions  *session.Store
	// BaseURL es la URL pública; vacía la deriva del request.
	BaseURL string
	// ConnectPath es el prefijo de las rutas (default "/connect").
	ConnectPath string
	// PostConnectURL es el destino tras el callback; vacío vuelve a
	// {ConnectPath}/{provider}.
	PostConnectURL string
	Recorder       Recorder
}

// ConnectController maneja /connect.
type ConnectController struct {
	services       *social.ServiceRegistry
	connector      *social.Connector
	users          repository.UsersConnectionRepository
	sessions       *session.Store
	baseURL        string
	connectPath    string
	postConnectURL string
	recorder       Recorder
}

// NewConnectController valida las dependencias.
func NewConnectController(d Deps) (*ConnectController, error) {
	if d.Services == nil || d.Connector == nil || d.Users == nil || d.Sessions == nil {
		return nil, errors.New("connections: controller requires services, connector, users and sessions")
	}
	path := "/" + strings.Trim(d.ConnectPath, "/")
	if path == "/" {
		path = "/connect"
	}
	rec := d.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ConnectController{
		services:       d.Services,
		connector:      d.Connector,
		users:          d.Users,
		sessions:       d.Sessions,
		baseURL:        d.BaseURL,
		connectPath:    path,
		postConnectURL: d.PostConnectURL,
		recorder:       rec,
	}, nil
}

func (c *ConnectController) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("controller"), logger.Op("ConnectController."+op))
}

// requireUser retorna la sesión y el usuario autenticado.
func (c *ConnectController) requireUser(r *http.Request) (*session.Session, string, error) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		if sess, err = c.sessions.Load(r.Context(), r); err != nil {
			return nil, "", err
		}
	}
	userID := sess.UserID()
	if userID == "" {
		return nil, "", social.ErrNotAuthenticated
	}
	return sess, userID, nil
}

func (c *ConnectController) repo(r *http.Request) (repository.ConnectionRepository, *session.Session, error) {
	sess, userID, err := c.requireUser(r)
	if err != nil {
		return nil, nil, err
	}
	repo, err := c.users.CreateConnectionRepository(userID)
	if err != nil {
		return nil, nil, err
	}
	return repo, sess, nil
}

// Status maneja GET /connect.
func (c *ConnectController) Status(w http.ResponseWriter, r *http.Request) {
	repo, _, err := c.repo(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	all, err := repo.FindAllConnections(r.Context())
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	resp := dto.StatusResponse{Connections: make(map[string][]dto.Connection, len(all))}
	for providerID, conns := range all {
		resp.Connections[providerID] = dto.FromConnections(conns)
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Provider maneja GET /connect/{provider}: completa el callback si trae
// parámetros del provider; si no, lista las conexiones.
func (c *ConnectController) Provider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	svc, err := c.services.Get(providerID)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	q := r.URL.Query()
	if svc.IsCallback(q) {
		c.callback(w, r, svc, q)
		return
	}

	repo, _, err := c.repo(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	conns, err := repo.FindConnectionsToProvider(r.Context(), providerID)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ProviderResponse{
		ProviderID:  providerID,
		Connected:   len(conns) > 0,
		Connections: dto.FromConnections(conns),
		Reconnect:   q.Get("reconnect") == "true",
	})
}

// Start maneja POST /connect/{provider}: redirige al provider.
func (c *ConnectController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID := chi.URLParam(r, "provider")
	svc, err := c.services.Get(providerID)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	sess, _, err := c.requireUser(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}

	target, err := svc.Start(ctx, sess, social.StartRequest{
		Flow:        social.FlowConnect,
		CallbackURL: social.CallbackURL(r, c.baseURL, c.connectPath, providerID),
		Scope:       r.FormValue("scope"),
	})
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if err := c.sessions.Save(ctx, w, sess); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	c.recorder.Outcome(providerID, string(social.FlowConnect), social.OutcomeRedirected)
	http.Redirect(w, r, target, http.StatusFound)
}

func (c *ConnectController) callback(w http.ResponseWriter, r *http.Request, svc social.AuthenticationService, q url.Values) {
	ctx := r.Context()
	providerID := svc.ProviderID()
	log := c.log(ctx, "Callback").With(logger.ProviderID(providerID))

	sess, userID, err := c.requireUser(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	log = log.With(logger.LocalUserID(userID))

	conn, err := svc.Complete(ctx, sess, q, social.FlowConnect, social.CallbackURL(r, c.baseURL, c.connectPath, providerID))
	if err != nil {
		code := social.ErrorCode(err)
		log.Warn("connect callback failed", logger.String("error_code", code), logger.Err(err))
		c.recorder.Outcome(providerID, string(social.FlowConnect), social.OutcomeFailed)
		c.redirect(w, r, sess, social.AppendQuery(c.providerURL(providerID), url.Values{"error": {code}}))
		return
	}

	res, err := c.connector.AddConnection(ctx, userID, conn, svc.Policy())
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if res == social.Added {
		c.recorder.ConnectionChanged(providerID, OpAdded)
	}
	c.recorder.Outcome(providerID, string(social.FlowConnect), res.String())
	log.Info("connect callback completed", logger.String("result", res.String()))

	target := c.postConnectURL
	if target == "" {
		target = c.providerURL(providerID)
	}
	c.redirect(w, r, sess, social.AppendQuery(target, url.Values{"result": {res.String()}}))
}

func (c *ConnectController) providerURL(providerID string) string {
	return c.connectPath + "/" + url.PathEscape(providerID)
}

func (c *ConnectController) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, target string) {
	if err := c.sessions.Save(r.Context(), w, sess); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// RemoveAll maneja DELETE /connect/{provider}. Es idempotente.
func (c *ConnectController) RemoveAll(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	repo, _, err := c.repo(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if err := repo.RemoveConnections(r.Context(), providerID); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	c.recorder.ConnectionChanged(providerID, OpRemoved)
	c.log(r.Context(), "RemoveAll").Info("connections removed", logger.ProviderID(providerID))
	w.WriteHeader(http.StatusNoContent)
}

// Remove maneja DELETE /connect/{provider}/{providerUserID}. Es idempotente.
func (c *ConnectController) Remove(w http.ResponseWriter, r *http.Request) {
	key := connect.NewKey(chi.URLParam(r, "provider"), chi.URLParam(r, "providerUserID"))
	repo, _, err := c.repo(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if err := repo.RemoveConnection(r.Context(), key); err != nil {
		httperrors.Write(w, r, err)
		return
	}
	c.recorder.ConnectionChanged(key.ProviderID, OpRemoved)
	c.log(r.Context(), "Remove").Info("connection removed",
		logger.ProviderID(key.ProviderID), logger.ProviderUserID(key.ProviderUserID))
	w.WriteHeader(http.StatusNoContent)
}

// Profile maneja GET /connect/{provider}/profile: pide el perfil al
// provider con la conexión primaria. Los errores de la API se retornan para
// que el middleware de reconnect los procese.
func (c *ConnectController) Profile(w http.ResponseWriter, r *http.Request) error {
	providerID := chi.URLParam(r, "provider")
	repo, _, err := c.repo(r)
	if err != nil {
		return err
	}
	conn, err := repo.GetPrimaryConnection(r.Context(), providerID)
	if err != nil {
		return err
	}
	profile, err := conn.FetchUserProfile(r.Context())
	if err != nil {
		return err
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ProfileResponse{ProviderID: providerID, Profile: profile})
	return nil
}
