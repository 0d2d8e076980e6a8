package oauth2

import (
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// HeaderStyle formats the Authorization header for API calls. Older providers
// still expect pre-RFC 6750 draft formats.
type HeaderStyle int

const (
	// HeaderBearer: "Bearer {token}" (RFC 6750).
	HeaderBearer HeaderStyle = iota
	// HeaderOAuth2Draft: "OAuth2 {token}".
	HeaderOAuth2Draft
	// HeaderOAuthDraft10: "OAuth {token}".
	HeaderOAuthDraft10
	// HeaderTokenDraft8: `Token token="{token}"`.
	HeaderTokenDraft8
)

// ParseHeaderStyle maps a config value to a HeaderStyle; unknown values are Bearer.
func ParseHeaderStyle(s string) HeaderStyle {
	switch s {
	case "oauth2", "draft2":
		return HeaderOAuth2Draft
	case "oauth", "draft10":
		return HeaderOAuthDraft10
	case "token", "draft8":
		return HeaderTokenDraft8
	default:
		return HeaderBearer
	}
}

// Format renders the header value for accessToken.
func (s HeaderStyle) Format(accessToken string) string {
	switch s {
	case HeaderOAuth2Draft:
		return "OAuth2 " + accessToken
	case HeaderOAuthDraft10:
		return "OAuth " + accessToken
	case HeaderTokenDraft8:
		return `Token token="` + accessToken + `"`
	default:
		return "Bearer " + accessToken
	}
}

// NewClient returns an http.Client that authorizes every request with
// accessToken. Bearer goes through x/oauth2's Transport.
func NewClient(base *http.Client, accessToken string, style HeaderStyle) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	var timeout time.Duration
	if base != nil {
		timeout = base.Timeout
		if base.Transport != nil {
			rt = base.Transport
		}
	}
	if style == HeaderBearer {
		rt = &xoauth2.Transport{
			Source: xoauth2.StaticTokenSource((&AccessGrant{AccessToken: accessToken}).Token()),
			Base:   rt,
		}
	} else {
		rt = &headerTransport{value: style.Format(accessToken), base: rt}
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}

type headerTransport struct {
	value string
	base  http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", t.value)
	return t.base.RoundTrip(r)
}
