package oauth2

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
)

type capturedRequest struct {
	form   url.Values
	header http.Header
}

func tokenServer(t *testing.T, status int, contentType, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		captured.form = r.PostForm
		captured.header = r.Header.Clone()
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestTemplate(t *testing.T, tokenURL string, style xoauth2.AuthStyle) *Template {
	t.Helper()
	tpl, err := NewTemplate(Config{
		ClientID:       "client id",
		ClientSecret:   "s3cret",
		AuthorizeURL:   "https://provider.test/oauth/authorize",
		AccessTokenURL: tokenURL,
		AuthStyle:      style,
	})
	require.NoError(t, err)
	return tpl
}

func TestBuildAuthorizeURL_OrderAndEncoding(t *testing.T) {
	tpl := newTestTemplate(t, "https://provider.test/token", 0)

	params := NewParameters().
		SetRedirectURI("https://app.test/connect/facebook").
		SetScope("read write").
		SetState("st&1")
	params.Add("display", "popup")

	got := tpl.BuildAuthorizeURL(AuthorizationCode, params)
	want := "https://provider.test/oauth/authorize?client_id=client+id&response_type=code" +
		"&redirect_uri=https%3A%2F%2Fapp.test%2Fconnect%2Ffacebook&scope=read+write&state=st%261&display=popup"
	assert.Equal(t, want, got)

	implicit := tpl.BuildAuthorizeURL(ImplicitGrant, nil)
	assert.Equal(t, "https://provider.test/oauth/authorize?client_id=client+id&response_type=token", implicit)
}

func TestBuildAuthenticateURL_FallsBackToAuthorize(t *testing.T) {
	tpl := newTestTemplate(t, "https://provider.test/token", 0)
	assert.Equal(t, tpl.BuildAuthorizeURL(AuthorizationCode, nil), tpl.BuildAuthenticateURL(AuthorizationCode, nil))

	withAuth, err := NewTemplate(Config{
		ClientID:        "id",
		AuthorizeURL:    "https://provider.test/authorize",
		AuthenticateURL: "https://provider.test/authenticate?force=1",
		AccessTokenURL:  "https://provider.test/token",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://provider.test/authenticate?force=1&client_id=id&response_type=code",
		withAuth.BuildAuthenticateURL(AuthorizationCode, nil))
}

func TestExchangeForAccess_BasicAuthDefault(t *testing.T) {
	srv, req := tokenServer(t, http.StatusOK, "application/json",
		`{"access_token":"123456789","scope":"read","refresh_token":"987654321","expires_in":3600}`)
	tpl := newTestTemplate(t, srv.URL, 0)

	before := time.Now()
	grant, err := tpl.ExchangeForAccess(context.Background(), "code-1", "https://app.test/cb", nil)
	require.NoError(t, err)

	assert.Equal(t, "123456789", grant.AccessToken)
	assert.Equal(t, "read", grant.Scope)
	assert.Equal(t, "987654321", grant.RefreshToken)
	assert.InDelta(t, before.Add(time.Hour).UnixMilli(), grant.ExpireTime, 5000)

	assert.Equal(t, "authorization_code", req.form.Get("grant_type"))
	assert.Equal(t, "code-1", req.form.Get("code"))
	assert.Equal(t, "https://app.test/cb", req.form.Get("redirect_uri"))
	assert.Empty(t, req.form.Get("client_id"))
	assert.Empty(t, req.form.Get("client_secret"))

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client+id:s3cret"))
	assert.Equal(t, wantAuth, req.header.Get("Authorization"))
}

func TestExchangeForAccess_ParamsAuthStyle(t *testing.T) {
	srv, req := tokenServer(t, http.StatusOK, "application/json", `{"access_token":"abc"}`)
	tpl := newTestTemplate(t, srv.URL, xoauth2.AuthStyleInParams)

	_, err := tpl.RefreshAccess(context.Background(), "rt-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", req.form.Get("grant_type"))
	assert.Equal(t, "rt-1", req.form.Get("refresh_token"))
	assert.Equal(t, "client id", req.form.Get("client_id"))
	assert.Equal(t, "s3cret", req.form.Get("client_secret"))
	assert.Empty(t, req.header.Get("Authorization"))
}

func TestGrantOperations_GrantTypes(t *testing.T) {
	srv, req := tokenServer(t, http.StatusOK, "application/json", `{"access_token":"abc"}`)
	tpl := newTestTemplate(t, srv.URL, 0)
	ctx := context.Background()

	_, err := tpl.ExchangeCredentialsForAccess(ctx, "alice", "pw", NewParameters().Add("extra", "1"))
	require.NoError(t, err)
	assert.Equal(t, "password", req.form.Get("grant_type"))
	assert.Equal(t, "alice", req.form.Get("username"))
	assert.Equal(t, "pw", req.form.Get("password"))
	assert.Equal(t, "1", req.form.Get("extra"))

	_, err = tpl.AuthenticateClient(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client_credentials", req.form.Get("grant_type"))
	assert.Empty(t, req.form.Get("scope"))

	_, err = tpl.AuthenticateClientWithScope(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", req.form.Get("scope"))
}

func TestExchange_ExpiresInVariants(t *testing.T) {
	cases := map[string]struct {
		body    string
		expires bool
		expired bool
	}{
		"number":      {`{"access_token":"a","expires_in":60}`, true, false},
		"string":      {`{"access_token":"a","expires_in":"60"}`, true, false},
		"zero":        {`{"access_token":"a","expires_in":0}`, true, true},
		"zero string": {`{"access_token":"a","expires_in":"0"}`, true, true},
		"negative":    {`{"access_token":"a","expires_in":-5}`, true, true},
		"unparsable":  {`{"access_token":"a","expires_in":"soon"}`, false, false},
		"fractional":  {`{"access_token":"a","expires_in":60.5}`, false, false},
		"absent":      {`{"access_token":"a"}`, false, false},
		"null":        {`{"access_token":"a","expires_in":null}`, false, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := tokenServer(t, http.StatusOK, "application/json", tc.body)
			tpl := newTestTemplate(t, srv.URL, 0)
			grant, err := tpl.ExchangeForAccess(context.Background(), "c", "r", nil)
			require.NoError(t, err)
			if !tc.expires {
				assert.Zero(t, grant.ExpireTime)
				return
			}
			require.NotZero(t, grant.ExpireTime)
			now := time.Now().UnixMilli()
			if tc.expired {
				assert.LessOrEqual(t, grant.ExpireTime, now)
			} else {
				assert.Greater(t, grant.ExpireTime, now)
			}
		})
	}
}

func TestExchange_FormEncodedResponse(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, "application/x-www-form-urlencoded",
		"access_token=gho_1&scope=user&token_type=bearer")
	tpl := newTestTemplate(t, srv.URL, 0)

	grant, err := tpl.ExchangeForAccess(context.Background(), "c", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, "gho_1", grant.AccessToken)
	assert.Equal(t, "user", grant.Scope)
}

func TestExchange_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusBadRequest, "application/json",
			`{"error":"invalid_grant","error_description":"code expired"}`)
		tpl := newTestTemplate(t, srv.URL, 0)

		_, err := tpl.ExchangeForAccess(context.Background(), "c", "r", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderAuth)

		var oerr *Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, http.StatusBadRequest, oerr.StatusCode)
		assert.Equal(t, "invalid_grant", oerr.Code)
		assert.Equal(t, "code expired", oerr.Description)
	})

	t.Run("missing access_token", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, "application/json", `{"scope":"read"}`)
		tpl := newTestTemplate(t, srv.URL, 0)

		_, err := tpl.ExchangeForAccess(context.Background(), "c", "r", nil)
		var oerr *Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, codeMissingAccessToken, oerr.Code)
	})
}

func TestNewTemplate_Validation(t *testing.T) {
	_, err := NewTemplate(Config{AuthorizeURL: "a", AccessTokenURL: "b"})
	assert.Error(t, err)
	_, err = NewTemplate(Config{ClientID: "x"})
	assert.Error(t, err)
}

func TestNewAccessGrant_NonExpiring(t *testing.T) {
	g := NewAccessGrant("a", "", "", 0)
	assert.Zero(t, g.ExpireTime)
	assert.True(t, g.Expiry().IsZero())

	g = NewAccessGrant("a", "", "", -time.Second)
	assert.Zero(t, g.ExpireTime)
}

func TestNewExpiringAccessGrant(t *testing.T) {
	now := time.Now().UnixMilli()
	g := NewExpiringAccessGrant("a", "", "", 0)
	assert.GreaterOrEqual(t, g.ExpireTime, now)
	assert.LessOrEqual(t, g.ExpireTime, time.Now().UnixMilli())

	g = NewExpiringAccessGrant("a", "", "r", -5*time.Second)
	assert.Less(t, g.ExpireTime, now)
	assert.False(t, g.Expiry().IsZero())

	tok := g.Token()
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.False(t, tok.Valid())
}
