package connect

import (
	"context"
)

// OAuth1Connection is a connection backed by an OAuth1 access token. OAuth1
// tokens do not expire.
type OAuth1Connection[A any] struct {
	base[A]

	accessToken string
	secret      string
	api         A
}

var _ APIConnection[any] = (*OAuth1Connection[any])(nil)

func newOAuth1Connection[A any](sp OAuth1ServiceProvider[A], adapter APIAdapter[A], accessToken, secret string) *OAuth1Connection[A] {
	c := &OAuth1Connection[A]{accessToken: accessToken, secret: secret}
	c.adapter = adapter
	c.api = sp.API(accessToken, secret)
	return c
}

// API returns the signed client.
func (c *OAuth1Connection[A]) API() A { return c.api }

func (c *OAuth1Connection[A]) Test(ctx context.Context) bool {
	return c.adapter.Test(ctx, c.api) == nil
}

func (c *OAuth1Connection[A]) HasExpired() bool { return false }

func (c *OAuth1Connection[A]) Refresh(context.Context) error { return ErrRefreshUnsupported }

func (c *OAuth1Connection[A]) Sync(ctx context.Context) error { return c.sync(ctx, c.api) }

func (c *OAuth1Connection[A]) FetchUserProfile(ctx context.Context) (UserProfile, error) {
	return c.adapter.FetchUserProfile(ctx, c.api)
}

func (c *OAuth1Connection[A]) CreateData() ConnectionData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.snapshot()
	d.AccessToken = c.accessToken
	d.Secret = c.secret
	return d
}

func (c *OAuth1Connection[A]) Equal(other Connection) bool { return Equal(c, other) }
