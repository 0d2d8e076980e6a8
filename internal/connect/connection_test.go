package connect_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/connect/connecttest"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
)

func newOAuth2Connection(t *testing.T) (*connecttest.Provider, *connect.OAuth2ConnectionFactory[*connecttest.API], *connect.OAuth2Connection[*connecttest.API]) {
	t.Helper()
	p := connecttest.NewProvider()
	p.AddAccount("123456789", "9", "Keith Donald")
	f := connecttest.NewOAuth2Factory("test", p)

	c, err := f.CreateConnection(context.Background(), oauth2.NewAccessGrant("123456789", "", "987654321", time.Hour))
	require.NoError(t, err)
	return p, f, c
}

func TestOAuth2Connection_CreateFromGrant(t *testing.T) {
	_, _, c := newOAuth2Connection(t)

	assert.Equal(t, connect.NewKey("test", "9"), c.Key())
	assert.Equal(t, "Keith Donald", c.DisplayName())
	assert.Equal(t, "https://provider.test/9", c.ProfileURL())
	assert.Equal(t, "https://provider.test/9/picture", c.ImageURL())
	assert.Equal(t, "123456789", c.API().AccessToken)

	d := c.CreateData()
	assert.Equal(t, "123456789", d.AccessToken)
	assert.Equal(t, "987654321", d.RefreshToken)
	assert.Empty(t, d.Secret)
	assert.NotZero(t, d.ExpireTime)
	assert.False(t, c.HasExpired())
}

func TestOAuth2Connection_RoundTrip(t *testing.T) {
	_, f, c := newOAuth2Connection(t)

	restored, err := f.CreateConnectionFromData(c.CreateData())
	require.NoError(t, err)

	assert.True(t, c.Equal(restored))
	assert.Equal(t, c.Key(), restored.Key())
	assert.Equal(t, c.DisplayName(), restored.DisplayName())
	assert.Equal(t, c.CreateData(), restored.CreateData())

	typed, ok := connect.As[*connecttest.API](restored)
	require.True(t, ok)
	assert.Equal(t, "123456789", typed.API().AccessToken)
}

func TestOAuth2Connection_RefreshUpdatesLiveClient(t *testing.T) {
	p, _, c := newOAuth2Connection(t)
	p.RefreshGrant = oauth2.NewAccessGrant("765432109", "read", "654321098", time.Hour)

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, "765432109", c.API().AccessToken)
	d := c.CreateData()
	assert.Equal(t, "765432109", d.AccessToken)
	assert.Equal(t, "654321098", d.RefreshToken)
	assert.Equal(t, connect.NewKey("test", "9"), c.Key())
}

func TestOAuth2Connection_RefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	p, _, c := newOAuth2Connection(t)
	p.RefreshGrant = oauth2.NewAccessGrant("new-access", "", "", 0)

	require.NoError(t, c.Refresh(context.Background()))
	d := c.CreateData()
	assert.Equal(t, "new-access", d.AccessToken)
	assert.Equal(t, "987654321", d.RefreshToken)
	assert.Zero(t, d.ExpireTime)
}

func TestOAuth2Connection_RefreshFailures(t *testing.T) {
	p := connecttest.NewProvider()
	p.AddAccount("a", "1", "A")
	f := connecttest.NewOAuth2Factory("test", p)

	c, err := f.CreateConnection(context.Background(), oauth2.NewAccessGrant("a", "", "", 0))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Refresh(context.Background()), connect.ErrNoRefreshToken)
	assert.Zero(t, p.Refreshes)

	c2, err := f.Restore(connect.ConnectionData{ProviderID: "test", ProviderUserID: "1", AccessToken: "a", RefreshToken: "r"})
	require.NoError(t, err)
	p.RefreshErr = errors.New("boom")
	assert.Error(t, c2.Refresh(context.Background()))
	assert.Equal(t, "a", c2.API().AccessToken)
}

func TestConnection_TestDoesNotMutate(t *testing.T) {
	p, _, c := newOAuth2Connection(t)
	before := c.CreateData()

	assert.True(t, c.Test(context.Background()))

	p.TestErr = errors.New("revoked")
	assert.False(t, c.Test(context.Background()))
	assert.Equal(t, before, c.CreateData())
}

func TestConnection_SyncKeepsCredential(t *testing.T) {
	p, _, c := newOAuth2Connection(t)
	p.AddAccount("123456789", "9", "Keith")

	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, "Keith", c.DisplayName())
	assert.Equal(t, "123456789", c.CreateData().AccessToken)
	assert.Equal(t, "987654321", c.CreateData().RefreshToken)

	profile, err := c.FetchUserProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9", profile.ID)
}

func TestOAuth2Connection_HasExpired(t *testing.T) {
	p := connecttest.NewProvider()
	f := connecttest.NewOAuth2Factory("test", p)

	c, err := f.Restore(connect.ConnectionData{
		ProviderID:  "test",
		AccessToken: "a",
		ExpireTime:  time.Now().Add(-time.Minute).UnixMilli(),
	})
	require.NoError(t, err)
	assert.True(t, c.HasExpired())
}

func TestOAuth1Connection(t *testing.T) {
	p := connecttest.NewProvider()
	p.AddAccount("tok", "12", "Craig")
	f := connecttest.NewOAuth1Factory("twitter", p)

	c, err := f.CreateConnection(context.Background(), &oauth1.Token{Value: "tok", Secret: "sec"})
	require.NoError(t, err)

	assert.Equal(t, connect.NewKey("twitter", "12"), c.Key())
	assert.False(t, c.HasExpired())
	assert.ErrorIs(t, c.Refresh(context.Background()), connect.ErrRefreshUnsupported)

	d := c.CreateData()
	assert.Equal(t, "sec", d.Secret)
	assert.Empty(t, d.RefreshToken)

	restored, err := f.CreateConnectionFromData(d)
	require.NoError(t, err)
	assert.True(t, connect.Equal(c, restored))
}

func TestFactory_RejectsInvalidData(t *testing.T) {
	f := connecttest.NewOAuth2Factory("test", connecttest.NewProvider())

	_, err := f.CreateConnectionFromData(connect.ConnectionData{ProviderID: "test"})
	assert.ErrorIs(t, err, connect.ErrInvalidData)

	_, err = f.CreateConnectionFromData(connect.ConnectionData{ProviderID: "other", AccessToken: "a"})
	assert.ErrorIs(t, err, connect.ErrInvalidData)

	_, err = f.CreateConnection(context.Background(), oauth2.NewAccessGrant("unknown", "", "", 0))
	assert.ErrorIs(t, err, connecttest.ErrUnknownToken)
}

func TestEqual_Nil(t *testing.T) {
	_, _, c := newOAuth2Connection(t)
	assert.True(t, connect.Equal(nil, nil))
	assert.False(t, connect.Equal(c, nil))
}
