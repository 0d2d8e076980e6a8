package connect

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrRefreshUnsupported is returned by Refresh on OAuth1 connections.
	ErrRefreshUnsupported = errors.New("connect: refresh not supported by this connection")
	// ErrNoRefreshToken is returned by Refresh on an OAuth2 connection
	// that holds no refresh token.
	ErrNoRefreshToken = errors.New("connect: connection has no refresh token")
)

// Connection is a live credentialed binding to one provider account.
type Connection interface {
	Key() ConnectionKey
	DisplayName() string
	ProfileURL() string
	ImageURL() string

	// Test reports whether the credential still works. It never mutates
	// the connection and never returns the underlying error.
	Test(ctx context.Context) bool
	HasExpired() bool
	// Refresh renews the credential in place (OAuth2 only).
	Refresh(ctx context.Context) error
	// Sync reloads display name, profile URL and image URL.
	Sync(ctx context.Context) error
	FetchUserProfile(ctx context.Context) (UserProfile, error)

	CreateData() ConnectionData
	Equal(other Connection) bool
}

// APIConnection is a Connection whose live API client has type A.
type APIConnection[A any] interface {
	Connection
	API() A
}

// As narrows c to its typed form.
func As[A any](c Connection) (APIConnection[A], bool) {
	ac, ok := c.(APIConnection[A])
	return ac, ok
}

// Equal compares two connections by their snapshots.
func Equal(a, b Connection) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.CreateData() == b.CreateData()
}

// base holds the key and cached profile fields shared by both variants.
type base[A any] struct {
	mu          sync.RWMutex
	key         ConnectionKey
	displayName string
	profileURL  string
	imageURL    string
	adapter     APIAdapter[A]
}

func (b *base[A]) Key() ConnectionKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.key
}

func (b *base[A]) DisplayName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.displayName
}

func (b *base[A]) ProfileURL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.profileURL
}

func (b *base[A]) ImageURL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.imageURL
}

// initFromAPI sets key and profile fields from the live API. Used when a
// connection is created from a fresh credential.
func (b *base[A]) initFromAPI(ctx context.Context, providerID string, api A) error {
	var v ConnectionValues
	if err := b.adapter.SetConnectionValues(ctx, api, &v); err != nil {
		return err
	}
	b.mu.Lock()
	b.key = NewKey(providerID, v.ProviderUserID)
	b.setValues(v)
	b.mu.Unlock()
	return nil
}

func (b *base[A]) initFromData(d ConnectionData) {
	b.key = d.Key()
	b.displayName = d.DisplayName
	b.profileURL = d.ProfileURL
	b.imageURL = d.ImageURL
}

func (b *base[A]) sync(ctx context.Context, api A) error {
	var v ConnectionValues
	if err := b.adapter.SetConnectionValues(ctx, api, &v); err != nil {
		return err
	}
	b.mu.Lock()
	b.setValues(v)
	b.mu.Unlock()
	return nil
}

// setValues never touches the key or the credential. Caller holds mu.
func (b *base[A]) setValues(v ConnectionValues) {
	b.displayName = v.DisplayName
	b.profileURL = v.ProfileURL
	b.imageURL = v.ImageURL
}

func (b *base[A]) snapshot() ConnectionData {
	return ConnectionData{
		ProviderID:     b.key.ProviderID,
		ProviderUserID: b.key.ProviderUserID,
		DisplayName:    b.displayName,
		ProfileURL:     b.profileURL,
		ImageURL:       b.imageURL,
	}
}
