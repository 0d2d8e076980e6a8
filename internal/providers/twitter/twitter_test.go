package twitter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/providers/twitter"
)

func TestTwitter_SignedVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if r.URL.Path != "/account/verify_credentials.json" ||
			!strings.HasPrefix(auth, "OAuth ") ||
			!strings.Contains(auth, `oauth_token="access-token"`) ||
			!strings.Contains(auth, `oauth_consumer_key="consumer"`) ||
			!strings.Contains(auth, `oauth_signature_method="HMAC-SHA1"`) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"code":89,"message":"Invalid or expired token."}]}`))
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("skip_status"))
		_, _ = w.Write([]byte(`{"id":12345,"id_str":"12345","screen_name":"habuma","name":"Craig Walls",
			"profile_image_url_https":"https://pbs.test/habuma.png"}`))
	}))
	defer srv.Close()

	built, err := twitter.New(providers.Config{
		Type:         twitter.ProviderName,
		ClientID:     "consumer",
		ClientSecret: "consumer-secret",
		APIBaseURL:   srv.URL,
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	f := built.Factory.(*connect.OAuth1ConnectionFactory[*twitter.API])
	assert.Equal(t, oauth1.Core10a, f.OAuthOperations().Version())

	conn, err := f.CreateConnection(ctx, &oauth1.Token{Value: "access-token", Secret: "token-secret"})
	require.NoError(t, err)
	assert.Equal(t, connect.NewKey("twitter", "12345"), conn.Key())
	assert.Equal(t, "@habuma", conn.DisplayName())
	assert.Equal(t, "https://twitter.com/habuma", conn.ProfileURL())
	assert.Equal(t, "token-secret", conn.CreateData().Secret)

	u := f.OAuthOperations().BuildAuthenticateURL("req", oauth1.Parameters{})
	assert.True(t, strings.HasPrefix(u, "https://api.twitter.com/oauth/authenticate?oauth_token=req"))

	stale, err := f.Restore(connect.ConnectionData{ProviderID: "twitter", ProviderUserID: "12345", AccessToken: "old", Secret: "s"})
	require.NoError(t, err)
	_, err = stale.API().VerifyCredentials(ctx)
	apiErr, ok := connect.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, connect.KindExpiredAuthorization, apiErr.Kind)
}
