package connect

import (
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

// OAuth2ServiceProvider owns the OAuth2 operations of a provider and builds
// API clients from access tokens.
type OAuth2ServiceProvider[A any] interface {
	OAuthOperations() oauth2.Operations
	API(accessToken string) A
}

// OAuth1ServiceProvider owns the OAuth1 operations of a provider and builds
// signed API clients from access tokens.
type OAuth1ServiceProvider[A any] interface {
	OAuthOperations() oauth1.Operations
	API(accessToken, secret string) A
}

type oauth2ServiceProvider[A any] struct {
	ops   oauth2.Operations
	build func(accessToken string) A
}

// NewOAuth2ServiceProvider pairs ops with an API constructor.
func NewOAuth2ServiceProvider[A any](ops oauth2.Operations, build func(accessToken string) A) OAuth2ServiceProvider[A] {
	return &oauth2ServiceProvider[A]{ops: ops, build: build}
}

func (p *oauth2ServiceProvider[A]) OAuthOperations() oauth2.Operations {
	return p.ops
}

func (p *oauth2ServiceProvider[A]) API(accessToken string) A {
	return p.build(accessToken)
}

type oauth1ServiceProvider[A any] struct {
	ops   oauth1.Operations
	build func(accessToken, secret string) A
}

// NewOAuth1ServiceProvider pairs ops with an API constructor.
func NewOAuth1ServiceProvider[A any](ops oauth1.Operations, build func(accessToken, secret string) A) OAuth1ServiceProvider[A] {
	return &oauth1ServiceProvider[A]{ops: ops, build: build}
}

func (p *oauth1ServiceProvider[A]) OAuthOperations() oauth1.Operations {
	return p.ops
}

func (p *oauth1ServiceProvider[A]) API(accessToken, secret string) A {
	return p.build(accessToken, secret)
}

