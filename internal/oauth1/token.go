package oauth1

import "net/url"

// Version is the OAuth 1 protocol revision a provider speaks.
type Version int

const (
	// Core10a is OAuth Core 1.0 Revision A: the callback travels on the
	// request-token leg and the verifier on the access-token leg.
	Core10a Version = iota
	// Core10 is the original OAuth Core 1.0: the callback goes on the
	// authorize URL and there is no verifier.
	Core10
)

// ParseVersion maps a config value to a Version; unknown values are 1.0a.
func ParseVersion(s string) Version {
	if s == "1.0" || s == "core10" {
		return Core10
	}
	return Core10a
}

func (v Version) String() string {
	if v == Core10 {
		return "1.0"
	}
	return "1.0a"
}

// Token is an OAuth1 request or access token.
type Token struct {
	Value  string
	Secret string
	// CallbackConfirmed is set on 1.0a request tokens when the provider
	// echoed oauth_callback_confirmed=true.
	CallbackConfirmed bool
}

// AuthorizedRequestToken is a request token the user approved at the
// provider, together with the verifier the provider returned (1.0a).
type AuthorizedRequestToken struct {
	*Token
	Verifier string
}

// NewAuthorizedRequestToken pairs a request token with its verifier.
func NewAuthorizedRequestToken(t *Token, verifier string) *AuthorizedRequestToken {
	return &AuthorizedRequestToken{Token: t, Verifier: verifier}
}

// Parameters are the inputs of BuildAuthorizeURL.
type Parameters struct {
	// CallbackURL is only sent here for Core10 providers.
	CallbackURL string
	Extra       url.Values
}
