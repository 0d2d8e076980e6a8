package social

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *StateSigner {
	t.Helper()
	s, err := NewStateSigner(bytes.Repeat([]byte{1}, 32), "https://app.test", time.Minute)
	require.NoError(t, err)
	return s
}

func TestStateSigner_RoundTrip(t *testing.T) {
	s := newTestSigner(t)
	tok, err := s.SignState(StateClaims{Provider: "github", Flow: FlowConnect, Nonce: "abc"})
	require.NoError(t, err)

	got, err := s.ParseState(tok)
	require.NoError(t, err)
	assert.Equal(t, "github", got.Provider)
	assert.Equal(t, FlowConnect, got.Flow)
	assert.Equal(t, "abc", got.Nonce)
	assert.Equal(t, "https://app.test", got.Issuer)
}

func TestStateSigner_Expired(t *testing.T) {
	s := newTestSigner(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	tok, err := s.SignState(StateClaims{Provider: "github", Flow: FlowSignIn, Nonce: "n"})
	require.NoError(t, err)

	// dentro de la gracia
	s.now = func() time.Time { return base.Add(time.Minute + 10*time.Second) }
	_, err = s.ParseState(tok)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.ParseState(tok)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateSigner_Rejects(t *testing.T) {
	s := newTestSigner(t)
	tok, err := s.SignState(StateClaims{Provider: "github", Flow: FlowSignIn, Nonce: "n"})
	require.NoError(t, err)

	other, err := NewStateSigner(bytes.Repeat([]byte{2}, 32), "https://app.test", time.Minute)
	require.NoError(t, err)
	_, err = other.ParseState(tok)
	assert.ErrorIs(t, err, ErrStateInvalid)

	otherIssuer, err := NewStateSigner(bytes.Repeat([]byte{1}, 32), "https://evil.test", time.Minute)
	require.NoError(t, err)
	_, err = otherIssuer.ParseState(tok)
	assert.ErrorIs(t, err, ErrStateInvalid)

	_, err = s.ParseState(tok[:len(tok)-2])
	assert.ErrorIs(t, err, ErrStateInvalid)
}

func TestNewStateSigner_ShortKey(t *testing.T) {
	_, err := NewStateSigner([]byte("short"), "iss", 0)
	assert.Error(t, err)
}

func TestSafeReturnTo(t *testing.T) {
	assert.Equal(t, "/a/b?x=1", safeReturnTo("/a/b?x=1"))
	assert.Empty(t, safeReturnTo("https://evil.test"))
	assert.Empty(t, safeReturnTo("//evil.test"))
	assert.Empty(t, safeReturnTo("/\\evil.test"))
	assert.Empty(t, safeReturnTo(""))
}
