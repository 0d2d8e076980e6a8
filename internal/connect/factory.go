package connect

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

// ConnectionFactory restores connections of one provider from snapshots.
type ConnectionFactory interface {
	ProviderID() string
	// APIType is the Go type of the API client the factory produces.
	APIType() reflect.Type
	CreateConnectionFromData(d ConnectionData) (Connection, error)
}

// OAuth2ConnectionFactory builds OAuth2 connections for one provider.
type OAuth2ConnectionFactory[A any] struct {
	providerID string
	sp         OAuth2ServiceProvider[A]
	adapter    APIAdapter[A]
	// Scope is the default scope requested on the authorize leg.
	Scope string
}

// NewOAuth2ConnectionFactory builds the factory for providerID.
func NewOAuth2ConnectionFactory[A any](providerID string, sp OAuth2ServiceProvider[A], adapter APIAdapter[A]) *OAuth2ConnectionFactory[A] {
	return &OAuth2ConnectionFactory[A]{providerID: providerID, sp: sp, adapter: adapter}
}

func (f *OAuth2ConnectionFactory[A]) ProviderID() string {
	return f.providerID
}

func (f *OAuth2ConnectionFactory[A]) APIType() reflect.Type {
	return reflect.TypeOf((*A)(nil)).Elem()
}

func (f *OAuth2ConnectionFactory[A]) OAuthOperations() oauth2.Operations {
	return f.sp.OAuthOperations()
}

// CreateConnection builds a connection from a fresh grant. The provider is
// called to resolve the account id and profile fields.
func (f *OAuth2ConnectionFactory[A]) CreateConnection(ctx context.Context, grant *oauth2.AccessGrant) (*OAuth2Connection[A], error) {
	if grant == nil || grant.AccessToken == "" {
		return nil, ErrInvalidData
	}
	c := newOAuth2Connection(f.sp, f.adapter, grant)
	if err := c.initFromAPI(ctx, f.providerID, c.api); err != nil {
		return nil, fmt.Errorf("connect: %s: resolve account: %w", f.providerID, err)
	}
	return c, nil
}

// CreateConnectionFromData restores a persisted connection without any
// provider call.
func (f *OAuth2ConnectionFactory[A]) CreateConnectionFromData(d ConnectionData) (Connection, error) {
	c, err := f.Restore(d)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Restore is the typed form of CreateConnectionFromData.
func (f *OAuth2ConnectionFactory[A]) Restore(d ConnectionData) (*OAuth2Connection[A], error) {
	if err := f.check(d); err != nil {
		return nil, err
	}
	c := newOAuth2Connection(f.sp, f.adapter, &oauth2.AccessGrant{
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		ExpireTime:   d.ExpireTime,
	})
	c.initFromData(d)
	return c, nil
}

func (f *OAuth2ConnectionFactory[A]) check(d ConnectionData) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.ProviderID != f.providerID {
		return fmt.Errorf("connect: data for %q given to %q factory: %w", d.ProviderID, f.providerID, ErrInvalidData)
	}
	return nil
}

// OAuth1ConnectionFactory builds OAuth1 connections for one provider.
type OAuth1ConnectionFactory[A any] struct {
	providerID string
	sp         OAuth1ServiceProvider[A]
	adapter    APIAdapter[A]
}

// NewOAuth1ConnectionFactory builds the factory for providerID.
func NewOAuth1ConnectionFactory[A any](providerID string, sp OAuth1ServiceProvider[A], adapter APIAdapter[A]) *OAuth1ConnectionFactory[A] {
	return &OAuth1ConnectionFactory[A]{providerID: providerID, sp: sp, adapter: adapter}
}

func (f *OAuth1ConnectionFactory[A]) ProviderID() string {
	return f.providerID
}

func (f *OAuth1ConnectionFactory[A]) APIType() reflect.Type {
	return reflect.TypeOf((*A)(nil)).Elem()
}

func (f *OAuth1ConnectionFactory[A]) OAuthOperations() oauth1.Operations {
	return f.sp.OAuthOperations()
}

// CreateConnection builds a connection from a fresh access token.
func (f *OAuth1ConnectionFactory[A]) CreateConnection(ctx context.Context, token *oauth1.Token) (*OAuth1Connection[A], error) {
	if token == nil || token.Value == "" {
		return nil, ErrInvalidData
	}
	c := newOAuth1Connection(f.sp, f.adapter, token.Value, token.Secret)
	if err := c.initFromAPI(ctx, f.providerID, c.api); err != nil {
		return nil, fmt.Errorf("connect: %s: resolve account: %w", f.providerID, err)
	}
	return c, nil
}

// CreateConnectionFromData restores a persisted connection.
func (f *OAuth1ConnectionFactory[A]) CreateConnectionFromData(d ConnectionData) (Connection, error) {
	c, err := f.Restore(d)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Restore is the typed form of CreateConnectionFromData.
func (f *OAuth1ConnectionFactory[A]) Restore(d ConnectionData) (*OAuth1Connection[A], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.ProviderID != f.providerID {
		return nil, fmt.Errorf("connect: data for %q given to %q factory: %w", d.ProviderID, f.providerID, ErrInvalidData)
	}
	c := newOAuth1Connection(f.sp, f.adapter, d.AccessToken, d.Secret)
	c.initFromData(d)
	return c, nil
}
