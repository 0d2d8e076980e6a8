package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/session"
)

func newStore() *session.Store {
	return session.NewStore(session.Deps{
		Cache:  cache.NewMemory("test", 0),
		TTL:    time.Minute,
		Cookie: session.CookieConfig{Name: "sid", Secure: true},
	})
}

// roundTrip guarda sess y retorna un request que lleva la cookie emitida.
func roundTrip(t *testing.T, s *session.Store, sess *session.Session) (*http.Request, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.Save(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req, cookies[0]
}

func TestLoad_NewWithoutCookie(t *testing.T) {
	s := newStore()
	sess, err := s.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	assert.NotEmpty(t, sess.ID())
	assert.Empty(t, sess.UserID())
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, sess.Set(session.UserIDKey, "u1"))
	require.NoError(t, sess.Set("pending", map[string]int{"n": 3}))

	req, cookie := roundTrip(t, s, sess)
	assert.Equal(t, "sid", cookie.Name)
	assert.Equal(t, sess.ID(), cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 60, cookie.MaxAge)

	loaded, err := s.Load(ctx, req)
	require.NoError(t, err)
	assert.False(t, loaded.IsNew())
	assert.Equal(t, sess.ID(), loaded.ID())
	assert.Equal(t, "u1", loaded.UserID())

	var pending map[string]int
	ok, err := loaded.Get("pending", &pending)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, pending["n"])
}

func TestSave_SkipsUnchanged(t *testing.T) {
	s := newStore()
	sess, err := s.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Save(context.Background(), rec, sess))
	assert.Empty(t, rec.Result().Cookies())
}

func TestTake_RemovesValue(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	sess, _ := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, sess.Set("state", "abc"))
	req, _ := roundTrip(t, s, sess)

	loaded, err := s.Load(ctx, req)
	require.NoError(t, err)
	var state string
	ok, err := loaded.Take("state", &state)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", state)

	ok, err = loaded.Take("state", &state)
	require.NoError(t, err)
	assert.False(t, ok)

	req, _ = roundTrip(t, s, loaded)
	again, err := s.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, again.GetString("state"))
}

func TestLoad_UnknownOrMalformedCookie(t *testing.T) {
	s := newStore()
	for _, v := range []string{"not-a-uuid", "6f1c5c2e-8d4b-4a55-9f55-2a7b0a0c1d11"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: v})
		sess, err := s.Load(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, sess.IsNew())
		assert.NotEqual(t, v, sess.ID())
	}
}

func TestRenew_ChangesIDKeepsValues(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	sess, _ := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, sess.Set("k", "v"))
	oldReq, _ := roundTrip(t, s, sess)
	oldID := sess.ID()

	require.NoError(t, s.Renew(ctx, sess))
	assert.NotEqual(t, oldID, sess.ID())
	newReq, _ := roundTrip(t, s, sess)

	old, err := s.Load(ctx, oldReq)
	require.NoError(t, err)
	assert.True(t, old.IsNew())

	renewed, err := s.Load(ctx, newReq)
	require.NoError(t, err)
	assert.Equal(t, "v", renewed.GetString("k"))
}

func TestDestroy(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	sess, _ := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, sess.Set(session.UserIDKey, "u1"))
	req, _ := roundTrip(t, s, sess)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Destroy(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	loaded, err := s.Load(ctx, req)
	require.NoError(t, err)
	assert.True(t, loaded.IsNew())
}

func TestMiddleware(t *testing.T) {
	s := newStore()
	var seen *session.Session
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		require.NoError(t, err)
		seen = sess
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, seen)

	_, err := session.FromContext(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

// countingCache cuenta las escrituras sobre un cache en memoria.
type countingCache struct {
	cache.Client
	sets int
}

func (c *countingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.sets++
	return c.Client.Set(ctx, key, value, ttl)
}

func TestMiddleware_TouchesSignedInSession(t *testing.T) {
	cc := &countingCache{Client: cache.NewMemory("test", 0)}
	s := session.NewStore(session.Deps{Cache: cc, TTL: time.Minute, Cookie: session.CookieConfig{Name: "sid"}})
	ctx := context.Background()
	noop := s.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	// anónima: ni escritura ni cookie
	anon, _ := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, anon.Set("state", "abc"))
	req, _ := roundTrip(t, s, anon)
	cc.sets = 0
	rec := httptest.NewRecorder()
	noop.ServeHTTP(rec, req)
	assert.Zero(t, cc.sets)
	assert.Empty(t, rec.Result().Cookies())

	// autenticada: TTL y cookie renovados en cada request
	sess, _ := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, sess.Set(session.UserIDKey, "u1"))
	req, _ = roundTrip(t, s, sess)
	cc.sets = 0
	rec = httptest.NewRecorder()
	noop.ServeHTTP(rec, req)
	assert.Equal(t, 1, cc.sets)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sess.ID(), cookies[0].Value)
	assert.Equal(t, 60, cookies[0].MaxAge)

	loaded, err := s.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.UserID())
}
