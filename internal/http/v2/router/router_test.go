package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/connect/connecttest"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/connections"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/health"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/signin"
	dto "github.com/dropDatabas3/socialconnect/internal/http/v2/dto/connect"
	mw "github.com/dropDatabas3/socialconnect/internal/http/v2/middlewares"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/router"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/rate"
	"github.com/dropDatabas3/socialconnect/internal/session"
	"github.com/dropDatabas3/socialconnect/internal/social"
	"github.com/dropDatabas3/socialconnect/internal/store"
	"github.com/dropDatabas3/socialconnect/internal/store/adapters/memory"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type change struct{ provider, op string }

type recorder struct {
	changes []change
}

func (r *recorder) Outcome(string, string, string) {}

func (r *recorder) ConnectionChanged(providerID, op string) {
	r.changes = append(r.changes, change{providerID, op})
}

type harness struct {
	t        *testing.T
	provider *connecttest.Provider
	oauth2   *connect.OAuth2ConnectionFactory[*connecttest.API]
	users    *store.UsersConnectionRepository
	sessions *session.Store
	recorder *recorder
	handler  http.Handler
	cookies  map[string]*http.Cookie
}

type options struct {
	limiter rate.Limiter
	ready   error
}

func newHarness(t *testing.T, opts options) *harness {
	t.Helper()
	p := connecttest.NewProvider()
	p.AddAccount("123456789", "9", "Keith Donald")
	p.Grants["code-9"] = oauth2.NewAccessGrant("123456789", "", "", time.Hour)

	h := &harness{
		t:        t,
		provider: p,
		oauth2:   connecttest.NewOAuth2Factory("test", p),
		recorder: &recorder{},
		cookies:  map[string]*http.Cookie{},
	}
	registry := connect.NewRegistry()
	registry.MustRegister(h.oauth2)
	registry.MustRegister(connecttest.NewOAuth1Factory("twitter", p))

	users, err := store.NewUsersConnectionRepository(store.ConnectionsDeps{
		Store:    memory.NewConnectionStore(),
		Registry: registry,
	})
	require.NoError(t, err)
	h.users = users

	signer, err := social.NewStateSigner(bytes.Repeat([]byte{7}, 32), "https://app.test", time.Minute)
	require.NoError(t, err)
	services := social.NewServiceRegistry()
	require.NoError(t, services.Register(social.NewOAuth2Service(h.oauth2, signer, social.DefaultPolicy())))

	h.sessions = session.NewStore(session.Deps{Cache: cache.NewMemory("", 0)})
	connector := social.NewConnector(users)
	filter, err := social.NewFilter(social.FilterDeps{
		Services:  services,
		Provider:  social.NewAuthenticationProvider(users, nil),
		Connector: connector,
		Sessions:  h.sessions,
		URLs: social.URLs{
			BaseURL:      "https://app.test",
			SignupURL:    "/signup",
			PostLoginURL: "/home",
		},
	})
	require.NoError(t, err)

	ctrls, err := controllers.New(controllers.Deps{
		Connect: connections.Deps{
			Services:  services,
			Connector: connector,
			Users:     users,
			Sessions:  h.sessions,
			BaseURL:   "https://app.test",
			Recorder:  h.recorder,
		},
		SignIn: signin.Deps{
			Filter:   filter,
			Utils:    social.NewSignInUtils(registry, users),
			Sessions: h.sessions,
			Recorder: h.recorder,
		},
		HealthChecks: map[string]health.Pinger{
			"store": pingFunc(func(context.Context) error { return opts.ready }),
		},
	})
	require.NoError(t, err)

	h.handler = router.New(router.Deps{
		Controllers: ctrls,
		Sessions:    h.sessions,
		RateLimiter: opts.limiter,
		Reconnect:   mw.ReconnectConfig{Users: users},
	})
	return h
}

func (h *harness) do(method, target string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, "https://app.test"+target, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return rec
}

func (h *harness) loginAs(userID string) {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(h.t, err)
	require.NoError(h.t, sess.Set(session.UserIDKey, userID))
	rec := httptest.NewRecorder()
	require.NoError(h.t, h.sessions.Save(context.Background(), rec, sess))
	for _, c := range rec.Result().Cookies() {
		h.cookies[c.Name] = c
	}
}

func (h *harness) link(userID, accessToken string) {
	h.t.Helper()
	ctx := context.Background()
	c, err := h.oauth2.CreateConnection(ctx, oauth2.NewAccessGrant(accessToken, "", "", 0))
	require.NoError(h.t, err)
	repo, err := h.users.CreateConnectionRepository(userID)
	require.NoError(h.t, err)
	require.NoError(h.t, repo.AddConnection(ctx, c))
}

func (h *harness) connections(userID string) []connect.Connection {
	h.t.Helper()
	repo, err := h.users.CreateConnectionRepository(userID)
	require.NoError(h.t, err)
	conns, err := repo.FindConnectionsToProvider(context.Background(), "test")
	require.NoError(h.t, err)
	return conns
}

func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["code"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, options{})
	rec := h.do(http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[health.Response](t, rec).Components["store"])
}

func TestReadyz_ComponentDown(t *testing.T) {
	h := newHarness(t, options{ready: errors.New("db down")})
	rec := h.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[health.Response](t, rec)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "unavailable", resp.Components["store"])
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, options{})
	rec := h.do(http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestConnect_RequiresUser(t *testing.T) {
	h := newHarness(t, options{})
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/connect"},
		{http.MethodGet, "/connect/test"},
		{http.MethodPost, "/connect/test"},
		{http.MethodDelete, "/connect/test"},
	} {
		rec := h.do(tc.method, tc.target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.target)
	}
}

func TestConnect_Status(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	h.link("u1", "123456789")

	rec := h.do(http.MethodGet, "/connect")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.StatusResponse](t, rec)
	require.Len(t, resp.Connections["test"], 1)
	assert.Equal(t, "9", resp.Connections["test"][0].ProviderUserID)
	assert.Equal(t, "Keith Donald", resp.Connections["test"][0].DisplayName)
	twitter, ok := resp.Connections["twitter"]
	assert.True(t, ok)
	assert.Empty(t, twitter)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestConnect_UnknownProvider(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	rec := h.do(http.MethodGet, "/connect/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROVIDER_NOT_FOUND", errorCode(t, rec))
}

func TestConnect_Flow(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")

	loc := location(t, h.do(http.MethodPost, "/connect/test"))
	assert.Equal(t, "provider.test", loc.Host)
	assert.Equal(t, "/authorize", loc.Path)
	assert.Equal(t, "https://app.test/connect/test", loc.Query().Get("redirect_uri"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	loc = location(t, h.do(http.MethodGet, "/connect/test?code=code-9&state="+url.QueryEscape(state)))
	assert.Equal(t, "/connect/test?result=added", loc.String())

	conns := h.connections("u1")
	require.Len(t, conns, 1)
	assert.Equal(t, connect.NewKey("test", "9"), conns[0].Key())
	assert.Equal(t, []change{{"test", connections.OpAdded}}, h.recorder.changes)

	rec := h.do(http.MethodGet, "/connect/test")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.ProviderResponse](t, rec)
	assert.True(t, resp.Connected)
	assert.False(t, resp.Reconnect)
}

func TestConnect_CallbackDenied(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	location(t, h.do(http.MethodPost, "/connect/test"))

	loc := location(t, h.do(http.MethodGet, "/connect/test?error=access_denied"))
	assert.Equal(t, "/connect/test", loc.Path)
	assert.Equal(t, "access_denied", loc.Query().Get("error"))
	assert.Empty(t, h.connections("u1"))
}

func TestConnect_CallbackReplayedState(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	state := location(t, h.do(http.MethodPost, "/connect/test")).Query().Get("state")

	location(t, h.do(http.MethodGet, "/connect/test?code=code-9&state="+url.QueryEscape(state)))
	loc := location(t, h.do(http.MethodGet, "/connect/test?code=code-9&state="+url.QueryEscape(state)))
	assert.Equal(t, "invalid_state", loc.Query().Get("error"))
}

func TestConnect_ReconnectFlagEchoed(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	rec := h.do(http.MethodGet, "/connect/test?reconnect=true")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.ProviderResponse](t, rec)
	assert.True(t, resp.Reconnect)
	assert.False(t, resp.Connected)
	assert.NotNil(t, resp.Connections)
}

func TestConnect_Remove(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	h.link("u1", "123456789")

	rec := h.do(http.MethodDelete, "/connect/test/9")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, h.connections("u1"))

	// idempotente
	rec = h.do(http.MethodDelete, "/connect/test/9")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestConnect_RemoveAll(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")
	h.link("u1", "123456789")

	rec := h.do(http.MethodDelete, "/connect/test")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, h.connections("u1"))
	assert.Equal(t, []change{{"test", connections.OpRemoved}}, h.recorder.changes)
}

func TestConnect_Profile(t *testing.T) {
	h := newHarness(t, options{})
	h.loginAs("u1")

	rec := h.do(http.MethodGet, "/connect/test/profile")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONNECTION_NOT_FOUND", errorCode(t, rec))

	h.link("u1", "123456789")
	rec = h.do(http.MethodGet, "/connect/test/profile")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dto.ProfileResponse](t, rec)
	assert.Equal(t, "test", resp.ProviderID)
	assert.Equal(t, "Keith Donald", resp.Profile.Name)
}

func TestRateLimit_StartRequests(t *testing.T) {
	h := newHarness(t, options{limiter: rate.NewMemoryLimiter(1, time.Minute)})
	h.loginAs("u1")

	assert.Equal(t, http.StatusFound, h.do(http.MethodPost, "/connect/test").Code)
	rec := h.do(http.MethodPost, "/connect/test")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))

	// GET no cuenta
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/connect").Code)
}

func TestSignUp_PendingAndComplete(t *testing.T) {
	h := newHarness(t, options{})

	rec := h.do(http.MethodGet, "/signup/pending")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_PENDING_SIGNUP", errorCode(t, rec))

	loc := location(t, h.do(http.MethodPost, "/signin/test"))
	assert.Equal(t, "/authenticate", loc.Path)
	state := loc.Query().Get("state")

	loc = location(t, h.do(http.MethodGet, "/signin/test?code=code-9&state="+url.QueryEscape(state)))
	assert.Equal(t, "/signup", loc.String())

	rec = h.do(http.MethodGet, "/signup/pending")
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[dto.PendingSignUpResponse](t, rec)
	assert.Equal(t, "9", pending.Connection.ProviderUserID)

	rec = h.do(http.MethodPost, "/signup/complete")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.loginAs("new-user")
	rec = h.do(http.MethodPost, "/signup/complete")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, h.connections("new-user"), 1)

	rec = h.do(http.MethodGet, "/signup/pending")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignIn_ExistingUser(t *testing.T) {
	h := newHarness(t, options{})
	h.link("u1", "123456789")

	state := location(t, h.do(http.MethodPost, "/signin/test")).Query().Get("state")
	loc := location(t, h.do(http.MethodGet, "/signin/test?code=code-9&state="+url.QueryEscape(state)))
	assert.Equal(t, "/home", loc.String())

	rec := h.do(http.MethodGet, "/connect")
	assert.Equal(t, http.StatusOK, rec.Code)
}
