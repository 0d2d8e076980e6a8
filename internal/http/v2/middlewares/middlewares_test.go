package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/connect/connecttest"
	mw "github.com/dropDatabas3/socialconnect/internal/http/v2/middlewares"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/rate"
	"github.com/dropDatabas3/socialconnect/internal/session"
	"github.com/dropDatabas3/socialconnect/internal/store"
	"github.com/dropDatabas3/socialconnect/internal/store/adapters/memory"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestChain_Order(t *testing.T) {
	var got []string
	tag := func(name string) mw.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = append(got, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := mw.Chain(ok, tag("a"), tag("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := mw.WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestWithRecover(t *testing.T) {
	h := mw.WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")

	abort := mw.WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.Panics(t, func() { abort.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)) })
}

func TestWithCORS(t *testing.T) {
	h := mw.WithCORS([]string{"https://app.example/"})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/connect", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/connect", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, errors.New("redis down")
}

func TestWithRateLimit(t *testing.T) {
	var limited []string
	h := mw.WithRateLimit(mw.RateLimitConfig{
		Limiter:   rate.NewMemoryLimiter(2, time.Minute),
		Methods:   []string{"post"},
		OnLimited: func(r *http.Request) { limited = append(limited, r.URL.Path) },
	})(ok)

	post := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post("/signin/github", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post("/signin/github", "10.0.0.1").Code)
	rec := post("/signin/github", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"/signin/github"}, limited)

	// otro provider y otra IP cuentan aparte
	assert.Equal(t, http.StatusOK, post("/signin/google", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post("/signin/github", "10.0.0.2").Code)

	// GET no se limita
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signin/github", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithRateLimit_FailsOpen(t *testing.T) {
	h := mw.WithRateLimit(mw.RateLimitConfig{Limiter: failingLimiter{}})(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/connect/github", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type reconnectFixture struct {
	users    *store.UsersConnectionRepository
	sessions *session.Store
	factory  *connect.OAuth2ConnectionFactory[*connecttest.API]
	removed  []string
}

func newReconnectFixture(t *testing.T) *reconnectFixture {
	t.Helper()
	p := connecttest.NewProvider()
	p.AddAccount("tok-1", "9", "Keith Donald")
	p.AddAccount("tok-2", "10", "Keith Alt")

	f := &reconnectFixture{factory: connecttest.NewOAuth2Factory("test", p)}
	registry := connect.NewRegistry()
	registry.MustRegister(f.factory)
	users, err := store.NewUsersConnectionRepository(store.ConnectionsDeps{
		Store:    memory.NewConnectionStore(),
		Registry: registry,
	})
	require.NoError(t, err)
	f.users = users
	f.sessions = session.NewStore(session.Deps{Cache: cache.NewMemory("", 0)})
	return f
}

func (f *reconnectFixture) link(t *testing.T, userID, token string) {
	t.Helper()
	ctx := context.Background()
	c, err := f.factory.CreateConnection(ctx, oauth2.NewAccessGrant(token, "", "", 0))
	require.NoError(t, err)
	repo, err := f.users.CreateConnectionRepository(userID)
	require.NoError(t, err)
	require.NoError(t, repo.AddConnection(ctx, c))
}

// serve ejecuta h con una sesión del usuario userID en el contexto.
func (f *reconnectFixture) serve(t *testing.T, userID string, h mw.HandlerE) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/connect/test/profile", nil)
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		require.NoError(t, sess.Set(session.UserIDKey, userID))
	}
	req = req.WithContext(session.NewContext(req.Context(), sess))

	handler := mw.WithReconnect(mw.ReconnectConfig{
		Users:     f.users,
		OnRemoved: func(providerID string) { f.removed = append(f.removed, providerID) },
	})(h)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func failWith(err error) mw.HandlerE {
	return func(http.ResponseWriter, *http.Request) error { return err }
}

func TestWithReconnect_RemovesPrimaryAndRedirects(t *testing.T) {
	f := newReconnectFixture(t)
	f.link(t, "u1", "tok-1")
	f.link(t, "u1", "tok-2")

	rec := f.serve(t, "u1", failWith(&connect.APIError{ProviderID: "test", Kind: connect.KindExpiredAuthorization, StatusCode: 401}))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/connect/test?reconnect=true", rec.Header().Get("Location"))
	assert.Equal(t, []string{"test"}, f.removed)

	repo, err := f.users.CreateConnectionRepository("u1")
	require.NoError(t, err)
	conns, err := repo.FindConnectionsToProvider(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "10", conns[0].Key().ProviderUserID)
}

func TestWithReconnect_OtherErrors(t *testing.T) {
	f := newReconnectFixture(t)
	f.link(t, "u1", "tok-1")

	rec := f.serve(t, "u1", failWith(&connect.APIError{ProviderID: "test", Kind: connect.KindRateLimited, StatusCode: 429}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROVIDER_RATE_LIMITED")

	rec = f.serve(t, "", failWith(&connect.APIError{ProviderID: "test", Kind: connect.KindUnauthorized, StatusCode: 401}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.serve(t, "u1", failWith(nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.removed)
}
