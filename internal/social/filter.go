package social

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/session"
)

// Outcomes reportados al OutcomeRecorder.
const (
	OutcomeRedirected    = "redirected"
	OutcomeAuthenticated = "authenticated"
	OutcomeSignUp        = "signup"
	OutcomeFailed        = "failed"
)

// ReturnToKey guarda la URL a la que volver después del login.
const ReturnToKey = "social.return_to"

// OutcomeRecorder recibe el resultado de cada request del flujo.
type OutcomeRecorder interface {
	Outcome(providerID, flow, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Outcome(string, string, string) {}

// URLs son los destinos de redirect del filtro.
type URLs struct {
	// BaseURL es la URL pública del servicio; vacía la deriva del request.
	BaseURL string
	// SignInPath es el prefijo de las rutas del filtro (default "/signin").
	SignInPath     string
	SignupURL      string // vacío: sin signup, cero usuarios es un error
	PostLoginURL   string
	PostConnectURL string
	FailureURL     string
}

// FilterDeps contiene las dependencias del filtro.
type FilterDeps struct {
	Services  *ServiceRegistry
	Provider  *AuthenticationProvider
	Connector *Connector
	Sessions  *session.Store
	URLs      URLs
	Recorder  OutcomeRecorder
}

// Filter es el handler del sign-in social. POST inicia el flujo; un GET
// con parámetros de callback lo completa. Con un usuario en sesión el
// callback agrega la conexión en vez de autenticar.
type Filter struct {
	services  *ServiceRegistry
	provider  *AuthenticationProvider
	connector *Connector
	sessions  *session.Store
	urls      URLs
	recorder  OutcomeRecorder
}

// NewFilter valida las dependencias.
func NewFilter(d FilterDeps) (*Filter, error) {
	if d.Services == nil || d.Provider == nil || d.Connector == nil || d.Sessions == nil {
		return nil, errors.New("social: filter requires services, provider, connector and sessions")
	}
	urls := d.URLs
	if urls.SignInPath == "" {
		urls.SignInPath = "/signin"
	}
	if urls.PostLoginURL == "" {
		urls.PostLoginURL = "/"
	}
	if urls.PostConnectURL == "" {
		urls.PostConnectURL = "/connect"
	}
	if urls.FailureURL == "" {
		urls.FailureURL = urls.SignInPath
	}
	rec := d.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Filter{
		services:  d.Services,
		provider:  d.Provider,
		connector: d.Connector,
		sessions:  d.Sessions,
		urls:      urls,
		recorder:  rec,
	}, nil
}

// ServeHTTP resuelve el provider del último segmento del path.
func (f *Filter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, f.urls.SignInPath)
	providerID := strings.Trim(rest, "/")
	if providerID == "" || strings.Contains(providerID, "/") {
		http.NotFound(w, r)
		return
	}
	f.Handle(w, r, providerID)
}

// Handle procesa un request para providerID.
func (f *Filter) Handle(w http.ResponseWriter, r *http.Request, providerID string) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("filter"),
		logger.Component("social.filter"),
		logger.ProviderID(providerID),
	)
	ctx = logger.ToContext(ctx, log)

	sess, err := f.loadSession(ctx, r)
	if err != nil {
		log.Error("session unavailable", logger.Err(err))
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	svc, err := f.services.Get(providerID)
	if err != nil {
		f.fail(ctx, w, r, sess, providerID, err)
		return
	}

	q := r.URL.Query()
	switch {
	case svc.IsCallback(q):
		f.callback(ctx, w, r, sess, svc, q)
	case r.Method == http.MethodPost:
		f.start(ctx, w, r, sess, svc)
	default:
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *Filter) loadSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	if sess, err := session.FromContext(ctx); err == nil {
		return sess, nil
	}
	return f.sessions.Load(ctx, r)
}

func (f *Filter) start(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, svc AuthenticationService) {
	if !svc.Policy().AuthenticatePossible && sess.UserID() == "" {
		f.fail(ctx, w, r, sess, svc.ProviderID(), ErrAuthenticationNotPossible)
		return
	}
	if rt := safeReturnTo(r.FormValue("return_to")); rt != "" {
		if err := sess.Set(ReturnToKey, rt); err != nil {
			f.fail(ctx, w, r, sess, svc.ProviderID(), err)
			return
		}
	}

	target, err := svc.Start(ctx, sess, StartRequest{
		Flow:        FlowSignIn,
		CallbackURL: CallbackURL(r, f.urls.BaseURL, f.urls.SignInPath, svc.ProviderID()),
		Scope:       r.FormValue("scope"),
	})
	if err != nil {
		f.fail(ctx, w, r, sess, svc.ProviderID(), err)
		return
	}
	f.recorder.Outcome(svc.ProviderID(), string(FlowSignIn), OutcomeRedirected)
	f.redirect(ctx, w, r, sess, target)
}

func (f *Filter) callback(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, svc AuthenticationService, q url.Values) {
	providerID := svc.ProviderID()
	log := logger.From(ctx)

	conn, err := svc.Complete(ctx, sess, q, FlowSignIn, CallbackURL(r, f.urls.BaseURL, f.urls.SignInPath, providerID))
	if err != nil {
		f.fail(ctx, w, r, sess, providerID, err)
		return
	}

	// con usuario en sesión: agregar conexión
	if userID := sess.UserID(); userID != "" {
		res, err := f.connector.AddConnection(ctx, userID, conn, svc.Policy())
		if err != nil {
			f.fail(ctx, w, r, sess, providerID, err)
			return
		}
		f.recorder.Outcome(providerID, string(FlowConnect), res.String())
		f.redirect(ctx, w, r, sess, f.urls.PostConnectURL)
		return
	}

	if !svc.Policy().AuthenticatePossible {
		f.fail(ctx, w, r, sess, providerID, ErrAuthenticationNotPossible)
		return
	}

	userID, err := f.provider.Authenticate(ctx, conn)
	if errors.Is(err, ErrBadCredentials) && f.urls.SignupURL != "" {
		if err := StashPending(sess, conn); err != nil {
			f.fail(ctx, w, r, sess, providerID, err)
			return
		}
		log.Info("no local user for provider account, redirecting to sign up")
		f.recorder.Outcome(providerID, string(FlowSignIn), OutcomeSignUp)
		f.redirect(ctx, w, r, sess, f.urls.SignupURL)
		return
	}
	if err != nil {
		f.fail(ctx, w, r, sess, providerID, err)
		return
	}

	if err := f.sessions.Renew(ctx, sess); err != nil {
		f.fail(ctx, w, r, sess, providerID, err)
		return
	}
	if err := sess.Set(session.UserIDKey, userID); err != nil {
		f.fail(ctx, w, r, sess, providerID, err)
		return
	}
	target := f.urls.PostLoginURL
	var rt string
	if ok, _ := sess.Take(ReturnToKey, &rt); ok && rt != "" {
		target = rt
	}
	f.recorder.Outcome(providerID, string(FlowSignIn), OutcomeAuthenticated)
	f.redirect(ctx, w, r, sess, target)
}

func (f *Filter) redirect(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, target string) {
	if err := f.sessions.Save(ctx, w, sess); err != nil {
		logger.From(ctx).Error("session save failed", logger.Err(err))
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// fail redirige a FailureURL con un código de error estable.
func (f *Filter) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, providerID string, err error) {
	code := ErrorCode(err)
	fields := []zap.Field{logger.Err(err), logger.String("error_code", code)}
	if code == "server_error" {
		logger.From(ctx).Error("social sign in failed", fields...)
	} else {
		logger.From(ctx).Warn("social sign in failed", fields...)
	}
	f.recorder.Outcome(providerID, string(FlowSignIn), OutcomeFailed)

	target := AppendQuery(f.urls.FailureURL, url.Values{"error": {code}, "provider": {providerID}})
	f.redirect(ctx, w, r, sess, target)
}

// ErrorCode traduce un error del flujo a un código para la UI.
func ErrorCode(err error) string {
	var denied *ProviderDeniedError
	switch {
	case errors.As(err, &denied):
		return "access_denied"
	case errors.Is(err, ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, ErrMultipleUsers):
		return "multiple_users"
	case errors.Is(err, ErrAuthenticationNotPossible):
		return "signin_not_permitted"
	case errors.Is(err, ErrUnknownService):
		return "provider_not_found"
	case errors.Is(err, ErrStateInvalid), errors.Is(err, ErrStateExpired),
		errors.Is(err, ErrStateProvider), errors.Is(err, ErrStateNonce),
		errors.Is(err, ErrRequestTokenMissing), errors.Is(err, ErrRequestTokenMismatch):
		return "invalid_state"
	case errors.Is(err, ErrMissingCallbackParams):
		return "invalid_callback"
	case errors.Is(err, oauth2.ErrProviderAuth), errors.Is(err, oauth1.ErrProviderAuth):
		return "provider_error"
	}
	return "server_error"
}

// CallbackURL arma la URL absoluta del callback para providerID.
func CallbackURL(r *http.Request, baseURL, prefix, providerID string) string {
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
			scheme = p
		}
		baseURL = scheme + "://" + r.Host
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Trim(prefix, "/") + "/" + url.PathEscape(providerID)
}

// AppendQuery agrega q a target respetando un query existente.
func AppendQuery(target string, q url.Values) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

// safeReturnTo sólo acepta paths locales.
func safeReturnTo(v string) string {
	if !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return ""
	}
	return v
}
