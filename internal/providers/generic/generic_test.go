package generic_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/providers/generic"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const profileJSON = `{"data":{"user":{"id":77,"login":"keith","full_name":"Keith Donald",
	"avatar":{"url":"https://img.test/77"},"web_url":"https://git.test/keith"}}}`

func server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/me" || r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(profileJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mapping(srv *httptest.Server) providers.ProfileMapping {
	return providers.ProfileMapping{
		URL:      srv.URL + "/api/me",
		ID:       "data.user.id",
		Name:     "data.user.full_name",
		Username: "data.user.login",
		Link:     "data.user.web_url",
		Image:    "data.user.avatar.url",
	}
}

func TestGenericOAuth2(t *testing.T) {
	srv := server(t)
	states, err := social.NewStateSigner(bytes.Repeat([]byte{3}, 32), "test", time.Minute)
	require.NoError(t, err)

	built, err := generic.NewOAuth2(providers.Config{
		ID:             "gitea",
		Type:           generic.OAuth2Type,
		ClientID:       "c",
		AuthorizeURL:   "https://git.test/login/oauth/authorize",
		AccessTokenURL: "https://git.test/login/oauth/access_token",
		Scope:          "read:user",
		HeaderStyle:    "token",
		Profile:        mapping(srv),
		HTTPClient:     srv.Client(),
	}, states)
	require.NoError(t, err)
	assert.True(t, built.Shared)
	assert.Equal(t, "gitea", built.Service.ProviderID())

	f := built.Factory.(*connect.OAuth2ConnectionFactory[*generic.API])
	conn, err := f.CreateConnection(context.Background(), oauth2.NewAccessGrant("tok", "", "", 0))
	require.NoError(t, err)
	assert.Equal(t, connect.NewKey("gitea", "77"), conn.Key())
	assert.Equal(t, "Keith Donald", conn.DisplayName())
	assert.Equal(t, "https://git.test/keith", conn.ProfileURL())
	assert.Equal(t, "https://img.test/77", conn.ImageURL())

	p, err := conn.API().Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "keith", p.Username)
}

func TestGenericOAuth1(t *testing.T) {
	srv := server(t)
	built, err := generic.NewOAuth1(providers.Config{
		ID:              "legacy",
		Type:            generic.OAuth1Type,
		ClientID:        "ck",
		ClientSecret:    "cs",
		OAuthVersion:    "1.0",
		RequestTokenURL: "https://legacy.test/oauth/request_token",
		AuthorizeURL:    "https://legacy.test/oauth/authorize",
		AccessTokenURL:  "https://legacy.test/oauth/access_token",
		Profile:         mapping(srv),
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)

	f := built.Factory.(*connect.OAuth1ConnectionFactory[*generic.API])
	assert.Equal(t, oauth1.Core10, f.OAuthOperations().Version())

	conn, err := f.CreateConnection(context.Background(), &oauth1.Token{Value: "t", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, connect.NewKey("legacy", "77"), conn.Key())
}

func TestGeneric_MissingID(t *testing.T) {
	srv := server(t)
	m := mapping(srv)
	m.ID = "data.user.uuid"
	built, err := generic.NewOAuth1(providers.Config{
		ID:              "legacy",
		ClientID:        "ck",
		RequestTokenURL: "https://legacy.test/oauth/request_token",
		AuthorizeURL:    "https://legacy.test/oauth/authorize",
		AccessTokenURL:  "https://legacy.test/oauth/access_token",
		Profile:         m,
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	f := built.Factory.(*connect.OAuth1ConnectionFactory[*generic.API])
	_, err = f.CreateConnection(context.Background(), &oauth1.Token{Value: "t", Secret: "s"})
	assert.ErrorIs(t, err, generic.ErrMissingID)
}
