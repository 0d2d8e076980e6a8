package connect_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/connect/connecttest"
)

func TestRegistry_LookupByIDAndType(t *testing.T) {
	p := connecttest.NewProvider()
	r := connect.NewRegistry()
	f2 := connecttest.NewOAuth2Factory("facebook", p)
	f1 := connecttest.NewOAuth1Factory("twitter", p)
	require.NoError(t, r.Register(f2))
	require.NoError(t, r.Register(f1))

	byID, err := r.Get("facebook")
	require.NoError(t, err)
	byType, err := connect.FactoryFor[*connecttest.API](r)
	require.NoError(t, err)
	assert.Same(t, f2, byID)
	assert.Same(t, f2, byType)

	tw, err := r.GetByAPIType(reflect.TypeOf((**connecttest.OAuth1API)(nil)).Elem())
	require.NoError(t, err)
	assert.Same(t, f1, tw)

	assert.Equal(t, []string{"facebook", "twitter"}, r.ProviderIDs())
}

func TestRegistry_Errors(t *testing.T) {
	p := connecttest.NewProvider()
	r := connect.NewRegistry()
	r.MustRegister(connecttest.NewOAuth2Factory("facebook", p))

	assert.Error(t, r.Register(connecttest.NewOAuth1Factory("facebook", p)), "duplicate provider id")
	assert.Error(t, r.Register(connecttest.NewOAuth2Factory("other", p)), "duplicate api type")

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, connect.ErrUnknownProvider)
	_, err = r.Restore(connect.ConnectionData{ProviderID: "nope", AccessToken: "a"})
	assert.ErrorIs(t, err, connect.ErrUnknownProvider)

	assert.Panics(t, func() { r.MustRegister(connecttest.NewOAuth2Factory("facebook", p)) })
}

func TestRegistry_Shared(t *testing.T) {
	p := connecttest.NewProvider()
	r := connect.NewRegistry()
	require.NoError(t, r.RegisterShared(connecttest.NewOAuth2Factory("gitea", p)))
	require.NoError(t, r.RegisterShared(connecttest.NewOAuth2Factory("gitlab", p)))
	assert.Error(t, r.RegisterShared(connecttest.NewOAuth2Factory("gitea", p)))

	_, err := connect.FactoryFor[*connecttest.API](r)
	assert.ErrorIs(t, err, connect.ErrUnknownProvider)

	f, err := r.Get("gitlab")
	require.NoError(t, err)
	assert.Equal(t, "gitlab", f.ProviderID())
	assert.Equal(t, []string{"gitea", "gitlab"}, r.ProviderIDs())
}

func TestClassifyHTTP(t *testing.T) {
	cases := []struct {
		status    int
		msg       string
		kind      connect.APIErrorKind
		retry     bool
		reconnect bool
	}{
		{401, "Error validating access token: Session has expired", connect.KindExpiredAuthorization, false, true},
		{401, "Invalid OAuth access token.", connect.KindUnauthorized, false, true},
		{429, "", connect.KindRateLimited, true, false},
		{403, "(#4) Application request limit reached: rate limit", connect.KindRateLimited, true, false},
		{403, "Status is a duplicate.", connect.KindDuplicate, false, false},
		{503, "", connect.KindProviderDown, true, false},
		{400, "bad", connect.KindOther, false, false},
	}
	for _, tc := range cases {
		e := connect.ClassifyHTTP("facebook", tc.status, tc.msg)
		assert.Equal(t, tc.kind, e.Kind, tc.msg)
		assert.Equal(t, tc.retry, e.Retryable(), tc.msg)
		assert.Equal(t, tc.reconnect, e.RequiresReconnect(), tc.msg)

		got, ok := connect.AsAPIError(e)
		require.True(t, ok)
		assert.Same(t, e, got)
	}
}
