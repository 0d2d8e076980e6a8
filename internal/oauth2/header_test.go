package oauth2

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderStyle_Format(t *testing.T) {
	assert.Equal(t, "Bearer t", HeaderBearer.Format("t"))
	assert.Equal(t, "OAuth2 t", HeaderOAuth2Draft.Format("t"))
	assert.Equal(t, "OAuth t", HeaderOAuthDraft10.Format("t"))
	assert.Equal(t, `Token token="t"`, HeaderTokenDraft8.Format("t"))
	assert.Equal(t, HeaderTokenDraft8, ParseHeaderStyle("draft8"))
	assert.Equal(t, HeaderBearer, ParseHeaderStyle(""))
}

func TestNewClient_SetsAuthorizationHeader(t *testing.T) {
	for _, style := range []HeaderStyle{HeaderBearer, HeaderOAuth2Draft, HeaderOAuthDraft10, HeaderTokenDraft8} {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
		}))

		resp, err := NewClient(srv.Client(), "tok", style).Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		srv.Close()

		assert.Equal(t, style.Format("tok"), got)
	}
}

func TestParameters_Ordering(t *testing.T) {
	p := NewParameters().Set("b", "1").Set("a", "2")
	p.Add("b", "3")
	assert.Equal(t, "b=1&b=3&a=2", p.Encode())

	p.Set("b", "x")
	assert.Equal(t, "b=x&a=2", p.Encode())

	p.Del("b")
	assert.Equal(t, []string{"a"}, p.Keys())
	assert.Equal(t, "2", p.Values().Get("a"))
}
