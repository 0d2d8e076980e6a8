package oauth1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	t          *testing.T
	srv        *httptest.Server
	lastHeader map[string]string
	lastForm   url.Values
	status     int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	fp := &fakeProvider{t: t, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		fp.capture(r)
		if fp.status != http.StatusOK {
			w.WriteHeader(fp.status)
			return
		}
		_, _ = w.Write([]byte("oauth_token=req-tok&oauth_token_secret=req-sec&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		fp.capture(r)
		if fp.status != http.StatusOK {
			w.WriteHeader(fp.status)
			_, _ = w.Write([]byte("invalid verifier"))
			return
		}
		_, _ = w.Write([]byte("oauth_token=acc-tok&oauth_token_secret=acc-sec&user_id=42"))
	})
	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) capture(r *http.Request) {
	require.NoError(fp.t, r.ParseForm())
	fp.lastForm = r.PostForm
	fp.lastHeader = parseAuthHeader(r.Header.Get("Authorization"))
}

func (fp *fakeProvider) template(t *testing.T, v Version) *Template {
	tpl, err := NewTemplate(Config{
		ConsumerKey:     "ck",
		ConsumerSecret:  "cs",
		RequestTokenURL: fp.srv.URL + "/request_token",
		AuthorizeURL:    "https://provider.test/oauth/authorize",
		AuthenticateURL: "https://provider.test/oauth/authenticate",
		AccessTokenURL:  fp.srv.URL + "/access_token",
		Version:         v,
	})
	require.NoError(t, err)
	return tpl
}

func TestCore10a_ThreeLeggedFlow(t *testing.T) {
	fp := newFakeProvider(t)
	tpl := fp.template(t, Core10a)
	ctx := context.Background()

	req, err := tpl.FetchRequestToken(ctx, "https://app.test/connect/twitter", url.Values{"x_auth_access_type": {"read"}})
	require.NoError(t, err)
	assert.Equal(t, "req-tok", req.Value)
	assert.Equal(t, "req-sec", req.Secret)
	assert.True(t, req.CallbackConfirmed)
	assert.Equal(t, "https://app.test/connect/twitter", fp.lastHeader["oauth_callback"])
	assert.Equal(t, "read", fp.lastForm.Get("x_auth_access_type"))

	authURL := tpl.BuildAuthorizeURL(req.Value, Parameters{CallbackURL: "https://app.test/connect/twitter"})
	assert.Equal(t, "https://provider.test/oauth/authorize?oauth_token=req-tok", authURL)

	acc, err := tpl.ExchangeForAccessToken(ctx, NewAuthorizedRequestToken(req, "ver-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "acc-tok", acc.Value)
	assert.Equal(t, "acc-sec", acc.Secret)
	assert.Equal(t, "ver-1", fp.lastHeader["oauth_verifier"])
	assert.Equal(t, "req-tok", fp.lastHeader["oauth_token"])
}

func TestCore10_CallbackOnAuthorizeURL(t *testing.T) {
	fp := newFakeProvider(t)
	tpl := fp.template(t, Core10)
	ctx := context.Background()

	req, err := tpl.FetchRequestToken(ctx, "https://app.test/cb", nil)
	require.NoError(t, err)
	assert.NotContains(t, fp.lastHeader, "oauth_callback")

	authURL := tpl.BuildAuthorizeURL(req.Value, Parameters{CallbackURL: "https://app.test/cb"})
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "req-tok", u.Query().Get("oauth_token"))
	assert.Equal(t, "https://app.test/cb", u.Query().Get("oauth_callback"))

	_, err = tpl.ExchangeForAccessToken(ctx, NewAuthorizedRequestToken(req, ""), nil)
	require.NoError(t, err)
	assert.NotContains(t, fp.lastHeader, "oauth_verifier")
}

func TestBuildAuthenticateURL(t *testing.T) {
	fp := newFakeProvider(t)
	tpl := fp.template(t, Core10a)
	got := tpl.BuildAuthenticateURL("tok", Parameters{Extra: url.Values{"force_login": {"true"}}})
	assert.Equal(t, "https://provider.test/oauth/authenticate?force_login=true&oauth_token=tok", got)

	noAuth, err := NewTemplate(Config{
		ConsumerKey:     "ck",
		RequestTokenURL: "https://p/rt",
		AuthorizeURL:    "https://p/authorize",
		AccessTokenURL:  "https://p/at",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://p/authorize?oauth_token=tok", noAuth.BuildAuthenticateURL("tok", Parameters{}))
}

func TestExchange_Rejected(t *testing.T) {
	fp := newFakeProvider(t)
	tpl := fp.template(t, Core10a)
	fp.status = http.StatusUnauthorized

	_, err := tpl.ExchangeForAccessToken(context.Background(), NewAuthorizedRequestToken(&Token{Value: "r", Secret: "s"}, "bad"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderAuth)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, http.StatusUnauthorized, oerr.StatusCode)
	assert.Equal(t, "access_token", oerr.Leg)
	assert.Equal(t, "invalid verifier", oerr.Body)
}

func TestExchange_MissingVerifier(t *testing.T) {
	fp := newFakeProvider(t)
	tpl := fp.template(t, Core10a)

	_, err := tpl.ExchangeForAccessToken(context.Background(), NewAuthorizedRequestToken(&Token{Value: "r"}, ""), nil)
	assert.ErrorIs(t, err, ErrProviderAuth)
	assert.Nil(t, fp.lastHeader, "no request must reach the provider")
}

func TestClient_SignsRequests(t *testing.T) {
	var header map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = parseAuthHeader(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), NewSigner("ck", "cs"), &Token{Value: "acc", Secret: "sec"})
	resp, err := c.Get(srv.URL + "/1.1/account/verify_credentials.json?skip_status=true")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "acc", header["oauth_token"])
	assert.Equal(t, "ck", header["oauth_consumer_key"])
	assert.NotEmpty(t, header["oauth_signature"])
}
