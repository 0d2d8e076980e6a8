package connect

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

// OAuth2Connection is a connection backed by an OAuth2 access grant.
type OAuth2Connection[A any] struct {
	base[A]
	sp OAuth2ServiceProvider[A]

	accessToken  string
	refreshToken string
	expireTime   int64
	api          A

	refreshes singleflight.Group
}

var _ APIConnection[any] = (*OAuth2Connection[any])(nil)

func newOAuth2Connection[A any](sp OAuth2ServiceProvider[A], adapter APIAdapter[A], grant *oauth2.AccessGrant) *OAuth2Connection[A] {
	c := &OAuth2Connection[A]{sp: sp}
	c.adapter = adapter
	c.setGrant(grant.AccessToken, grant.RefreshToken, grant.ExpireTime)
	return c
}

func (c *OAuth2Connection[A]) setGrant(accessToken, refreshToken string, expireTime int64) {
	c.accessToken = accessToken
	c.refreshToken = refreshToken
	c.expireTime = expireTime
	c.api = c.sp.API(accessToken)
}

// API returns the client bound to the current access token.
func (c *OAuth2Connection[A]) API() A {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api
}

func (c *OAuth2Connection[A]) Test(ctx context.Context) bool {
	return c.adapter.Test(ctx, c.API()) == nil
}

func (c *OAuth2Connection[A]) HasExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expireTime != 0 && time.Now().UnixMilli() >= c.expireTime
}

// Refresh exchanges the refresh token for a new grant and swaps the live
// client. Concurrent callers share one exchange.
func (c *OAuth2Connection[A]) Refresh(ctx context.Context) error {
	c.mu.RLock()
	rt := c.refreshToken
	c.mu.RUnlock()
	if rt == "" {
		return ErrNoRefreshToken
	}

	_, err, _ := c.refreshes.Do(rt, func() (any, error) {
		grant, err := c.sp.OAuthOperations().RefreshAccess(ctx, rt, nil)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		next := grant.RefreshToken
		if next == "" {
			next = c.refreshToken
		}
		c.setGrant(grant.AccessToken, next, grant.ExpireTime)
		return nil, nil
	})
	return err
}

func (c *OAuth2Connection[A]) Sync(ctx context.Context) error {
	return c.sync(ctx, c.API())
}

func (c *OAuth2Connection[A]) FetchUserProfile(ctx context.Context) (UserProfile, error) {
	return c.adapter.FetchUserProfile(ctx, c.API())
}

func (c *OAuth2Connection[A]) CreateData() ConnectionData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.snapshot()
	d.AccessToken = c.accessToken
	d.RefreshToken = c.refreshToken
	d.ExpireTime = c.expireTime
	return d
}

func (c *OAuth2Connection[A]) Equal(other Connection) bool { return Equal(c, other) }
