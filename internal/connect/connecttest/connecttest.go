// Package connecttest provides a scriptable in-process provider for tests of
// code built on package connect.
package connecttest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

// ErrUnknownToken is returned by API calls made with an unscripted token.
var ErrUnknownToken = errors.New("connecttest: unknown access token")

// Provider is a fake provider. Accounts maps access tokens to the account
// they belong to; Grants maps authorization codes (OAuth2) or verifiers
// (OAuth1) to the credential the exchange returns.
type Provider struct {
	mu sync.Mutex

	Accounts map[string]connect.ConnectionValues
	Grants   map[string]*oauth2.AccessGrant
	Tokens   map[string]*oauth1.Token

	RefreshGrant *oauth2.AccessGrant
	RefreshErr   error
	TestErr      error

	Refreshes int
	Exchanges int
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{
		Accounts: map[string]connect.ConnectionValues{},
		Grants:   map[string]*oauth2.AccessGrant{},
		Tokens:   map[string]*oauth1.Token{},
	}
}

// AddAccount makes accessToken resolve to the given account.
func (p *Provider) AddAccount(accessToken, providerUserID, displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Accounts[accessToken] = connect.ConnectionValues{
		ProviderUserID: providerUserID,
		DisplayName:    displayName,
		ProfileURL:     "https://provider.test/" + providerUserID,
		ImageURL:       "https://provider.test/" + providerUserID + "/picture",
	}
}

func (p *Provider) account(token string) (connect.ConnectionValues, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.Accounts[token]
	if !ok {
		return v, ErrUnknownToken
	}
	return v, nil
}

// API is the client of OAuth2 connections to the fake provider.
type API struct {
	AccessToken string
}

// OAuth1API is the client of OAuth1 connections to the fake provider.
type OAuth1API struct {
	AccessToken string
	Secret      string
}

type adapter struct{ p *Provider }

func (a adapter) values(token string) (connect.ConnectionValues, error) {
	return a.p.account(token)
}

func (a adapter) test(token string) error {
	a.p.mu.Lock()
	err := a.p.TestErr
	a.p.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = a.values(token)
	return err
}

func profile(v connect.ConnectionValues) connect.UserProfile {
	return connect.UserProfile{ID: v.ProviderUserID, Name: v.DisplayName, Username: v.ProviderUserID}
}

type oauth2Adapter struct{ adapter }

func (a oauth2Adapter) Test(_ context.Context, api *API) error { return a.test(api.AccessToken) }

func (a oauth2Adapter) SetConnectionValues(_ context.Context, api *API, v *connect.ConnectionValues) error {
	got, err := a.values(api.AccessToken)
	if err != nil {
		return err
	}
	*v = got
	return nil
}

func (a oauth2Adapter) FetchUserProfile(_ context.Context, api *API) (connect.UserProfile, error) {
	v, err := a.values(api.AccessToken)
	return profile(v), err
}

type oauth1Adapter struct{ adapter }

func (a oauth1Adapter) Test(_ context.Context, api *OAuth1API) error {
	return a.test(api.AccessToken)
}

func (a oauth1Adapter) SetConnectionValues(_ context.Context, api *OAuth1API, v *connect.ConnectionValues) error {
	got, err := a.values(api.AccessToken)
	if err != nil {
		return err
	}
	*v = got
	return nil
}

func (a oauth1Adapter) FetchUserProfile(_ context.Context, api *OAuth1API) (connect.UserProfile, error) {
	v, err := a.values(api.AccessToken)
	return profile(v), err
}

// OAuth2Ops is a fake oauth2.Operations backed by a Provider.
type OAuth2Ops struct{ p *Provider }

var _ oauth2.Operations = OAuth2Ops{}

func (o OAuth2Ops) BuildAuthorizeURL(g oauth2.GrantType, params *oauth2.Parameters) string {
	return "https://provider.test/authorize?" + o.query(g, params)
}

func (o OAuth2Ops) BuildAuthenticateURL(g oauth2.GrantType, params *oauth2.Parameters) string {
	return "https://provider.test/authenticate?" + o.query(g, params)
}

func (o OAuth2Ops) query(g oauth2.GrantType, params *oauth2.Parameters) string {
	rt := "code"
	if g == oauth2.ImplicitGrant {
		rt = "token"
	}
	q := "response_type=" + rt
	if enc := params.Encode(); enc != "" {
		q += "&" + enc
	}
	return q
}

func (o OAuth2Ops) ExchangeForAccess(_ context.Context, code, _ string, _ *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	o.p.mu.Lock()
	defer o.p.mu.Unlock()
	o.p.Exchanges++
	g, ok := o.p.Grants[code]
	if !ok {
		return nil, &oauth2.Error{StatusCode: 400, Code: "invalid_grant"}
	}
	return g, nil
}

func (o OAuth2Ops) ExchangeCredentialsForAccess(ctx context.Context, username, _ string, _ *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	return o.ExchangeForAccess(ctx, username, "", nil)
}

func (o OAuth2Ops) RefreshAccess(context.Context, string, *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	o.p.mu.Lock()
	defer o.p.mu.Unlock()
	o.p.Refreshes++
	if o.p.RefreshErr != nil {
		return nil, o.p.RefreshErr
	}
	if o.p.RefreshGrant == nil {
		return nil, &oauth2.Error{StatusCode: 400, Code: "invalid_grant"}
	}
	return o.p.RefreshGrant, nil
}

func (o OAuth2Ops) AuthenticateClient(ctx context.Context) (*oauth2.AccessGrant, error) {
	return o.AuthenticateClientWithScope(ctx, "")
}

func (o OAuth2Ops) AuthenticateClientWithScope(context.Context, string) (*oauth2.AccessGrant, error) {
	return nil, &oauth2.Error{StatusCode: 400, Code: "unsupported_grant_type"}
}

// OAuth1Ops is a fake oauth1.Operations backed by a Provider. The request
// token returned by FetchRequestToken is "req-<n>".
type OAuth1Ops struct {
	p       *Provider
	version oauth1.Version
}

var _ oauth1.Operations = (*OAuth1Ops)(nil)

func (o *OAuth1Ops) Version() oauth1.Version { return o.version }

func (o *OAuth1Ops) FetchRequestToken(context.Context, string, url.Values) (*oauth1.Token, error) {
	o.p.mu.Lock()
	defer o.p.mu.Unlock()
	o.p.Exchanges++
	return &oauth1.Token{Value: fmt.Sprintf("req-%d", o.p.Exchanges), Secret: "req-secret", CallbackConfirmed: true}, nil
}

func (o *OAuth1Ops) BuildAuthorizeURL(requestToken string, _ oauth1.Parameters) string {
	return "https://provider.test/oauth/authorize?oauth_token=" + url.QueryEscape(requestToken)
}

func (o *OAuth1Ops) BuildAuthenticateURL(requestToken string, _ oauth1.Parameters) string {
	return "https://provider.test/oauth/authenticate?oauth_token=" + url.QueryEscape(requestToken)
}

func (o *OAuth1Ops) ExchangeForAccessToken(_ context.Context, t *oauth1.AuthorizedRequestToken, _ url.Values) (*oauth1.Token, error) {
	o.p.mu.Lock()
	defer o.p.mu.Unlock()
	tok, ok := o.p.Tokens[t.Verifier]
	if !ok {
		return nil, &oauth1.Error{StatusCode: 401, Leg: "access_token"}
	}
	return tok, nil
}

// NewOAuth2Factory returns an OAuth2 factory for providerID backed by p.
func NewOAuth2Factory(providerID string, p *Provider) *connect.OAuth2ConnectionFactory[*API] {
	sp := connect.NewOAuth2ServiceProvider[*API](OAuth2Ops{p: p}, func(token string) *API {
		return &API{AccessToken: token}
	})
	return connect.NewOAuth2ConnectionFactory[*API](providerID, sp, oauth2Adapter{adapter{p}})
}

// NewOAuth1Factory returns an OAuth1 factory for providerID backed by p.
func NewOAuth1Factory(providerID string, p *Provider) *connect.OAuth1ConnectionFactory[*OAuth1API] {
	sp := connect.NewOAuth1ServiceProvider[*OAuth1API](&OAuth1Ops{p: p}, func(token, secret string) *OAuth1API {
		return &OAuth1API{AccessToken: token, Secret: secret}
	})
	return connect.NewOAuth1ConnectionFactory[*OAuth1API](providerID, sp, oauth1Adapter{adapter{p}})
}
