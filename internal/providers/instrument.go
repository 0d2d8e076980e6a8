package providers

import (
	"context"
	"net/url"

	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

// instrumentOAuth2 reporta cada intercambio del template a cfg.Exchange.
func instrumentOAuth2(cfg Config, ops oauth2.Operations) oauth2.Operations {
	if cfg.Exchange == nil {
		return ops
	}
	return &observedOAuth2{Operations: ops, id: cfg.ProviderID(), report: cfg.Exchange}
}

type observedOAuth2 struct {
	oauth2.Operations
	id     string
	report ExchangeFunc
}

func (o *observedOAuth2) ExchangeForAccess(ctx context.Context, code, redirectURI string, extra *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	g, err := o.Operations.ExchangeForAccess(ctx, code, redirectURI, extra)
	o.report(o.id, "authorization_code", err)
	return g, err
}

func (o *observedOAuth2) ExchangeCredentialsForAccess(ctx context.Context, username, password string, extra *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	g, err := o.Operations.ExchangeCredentialsForAccess(ctx, username, password, extra)
	o.report(o.id, "password", err)
	return g, err
}

func (o *observedOAuth2) RefreshAccess(ctx context.Context, refreshToken string, extra *oauth2.Parameters) (*oauth2.AccessGrant, error) {
	g, err := o.Operations.RefreshAccess(ctx, refreshToken, extra)
	o.report(o.id, "refresh_token", err)
	return g, err
}

func (o *observedOAuth2) AuthenticateClient(ctx context.Context) (*oauth2.AccessGrant, error) {
	g, err := o.Operations.AuthenticateClient(ctx)
	o.report(o.id, "client_credentials", err)
	return g, err
}

func (o *observedOAuth2) AuthenticateClientWithScope(ctx context.Context, scope string) (*oauth2.AccessGrant, error) {
	g, err := o.Operations.AuthenticateClientWithScope(ctx, scope)
	o.report(o.id, "client_credentials", err)
	return g, err
}

// instrumentOAuth1 reporta las dos patas del handshake OAuth1.
func instrumentOAuth1(cfg Config, ops oauth1.Operations) oauth1.Operations {
	if cfg.Exchange == nil {
		return ops
	}
	return &observedOAuth1{Operations: ops, id: cfg.ProviderID(), report: cfg.Exchange}
}

type observedOAuth1 struct {
	oauth1.Operations
	id     string
	report ExchangeFunc
}

func (o *observedOAuth1) FetchRequestToken(ctx context.Context, callbackURL string, extra url.Values) (*oauth1.Token, error) {
	t, err := o.Operations.FetchRequestToken(ctx, callbackURL, extra)
	o.report(o.id, "request_token", err)
	return t, err
}

func (o *observedOAuth1) ExchangeForAccessToken(ctx context.Context, token *oauth1.AuthorizedRequestToken, extra url.Values) (*oauth1.Token, error) {
	t, err := o.Operations.ExchangeForAccessToken(ctx, token, extra)
	o.report(o.id, "access_token", err)
	return t, err
}
