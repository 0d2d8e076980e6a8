package oauth2

import (
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// GrantType selects the response_type of an authorize URL.
type GrantType int

const (
	// AuthorizationCode adds response_type=code.
	AuthorizationCode GrantType = iota
	// ImplicitGrant adds response_type=token.
	ImplicitGrant
)

func (g GrantType) responseType() string {
	if g == ImplicitGrant {
		return "token"
	}
	return "code"
}

func (g GrantType) String() string {
	if g == ImplicitGrant {
		return "implicit"
	}
	return "authorization_code"
}

// AccessGrant is the credential issued by an OAuth2 token endpoint.
type AccessGrant struct {
	AccessToken  string
	Scope        string
	RefreshToken string
	// ExpireTime is epoch millis; 0 means the grant does not expire.
	ExpireTime int64
}

// NewAccessGrant builds a grant; expiresIn <= 0 yields a non-expiring grant.
// Use NewExpiringAccessGrant when the provider reported a lifetime.
func NewAccessGrant(accessToken, scope, refreshToken string, expiresIn time.Duration) *AccessGrant {
	if expiresIn > 0 {
		return NewExpiringAccessGrant(accessToken, scope, refreshToken, expiresIn)
	}
	return &AccessGrant{
		AccessToken:  accessToken,
		Scope:        scope,
		RefreshToken: refreshToken,
	}
}

// NewExpiringAccessGrant sets ExpireTime to now+expiresIn for any value,
// so 0 or a negative lifetime produces an already expired grant.
func NewExpiringAccessGrant(accessToken, scope, refreshToken string, expiresIn time.Duration) *AccessGrant {
	return &AccessGrant{
		AccessToken:  accessToken,
		Scope:        scope,
		RefreshToken: refreshToken,
		ExpireTime:   time.Now().Add(expiresIn).UnixMilli(),
	}
}

// Expiry returns the expiry as time.Time, zero when non-expiring.
func (g *AccessGrant) Expiry() time.Time {
	if g.ExpireTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(g.ExpireTime)
}

// Token converts the grant for use with golang.org/x/oauth2 clients.
func (g *AccessGrant) Token() *xoauth2.Token {
	return &xoauth2.Token{
		AccessToken:  g.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: g.RefreshToken,
		Expiry:       g.Expiry(),
	}
}
