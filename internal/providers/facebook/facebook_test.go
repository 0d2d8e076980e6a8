package facebook_test

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
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/providers/facebook"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

func TestFacebook_ExchangeAndConnect(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		// credenciales en el form, no en Basic
		if _, _, ok := r.BasicAuth(); ok || r.FormValue("client_id") != "app" || r.FormValue("client_secret") != "shh" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"EAAB","token_type":"bearer","expires_in":"5183944"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name,first_name,last_name,email,link", r.URL.Query().Get("fields"))
		if r.Header.Get("Authorization") != "OAuth2 EAAB" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"10150","name":"Keith Donald","first_name":"Keith","last_name":"Donald"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	states, err := social.NewStateSigner(bytes.Repeat([]byte{3}, 32), "test", time.Minute)
	require.NoError(t, err)
	built, err := facebook.New(providers.Config{
		Type:           facebook.ProviderName,
		ClientID:       "app",
		ClientSecret:   "shh",
		HeaderStyle:    "oauth2",
		AccessTokenURL: srv.URL + "/oauth/access_token",
		APIBaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	}, states)
	require.NoError(t, err)
	f := built.Factory.(*connect.OAuth2ConnectionFactory[*facebook.API])
	assert.Equal(t, "public_profile,email", f.Scope)

	grant, err := f.OAuthOperations().ExchangeForAccess(ctx, "code", "https://app.test/signin/facebook", nil)
	require.NoError(t, err)
	assert.False(t, grant.Expiry().IsZero())

	conn, err := f.CreateConnection(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, connect.NewKey("facebook", "10150"), conn.Key())
	assert.Equal(t, "Keith Donald", conn.DisplayName())
	assert.Equal(t, "https://www.facebook.com/app_scoped_user_id/10150", conn.ProfileURL())
	assert.Equal(t, srv.URL+"/10150/picture", conn.ImageURL())
	assert.NotZero(t, conn.CreateData().ExpireTime)

	p, err := conn.FetchUserProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Keith", p.FirstName)
	assert.Equal(t, "Donald", p.LastName)
}
