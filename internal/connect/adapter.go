package connect

import "context"

// APIAdapter maps a provider API client of type A onto the connection model.
type APIAdapter[A any] interface {
	// Test performs a cheap authenticated call; a nil error means the
	// credential is valid.
	Test(ctx context.Context, api A) error
	// SetConnectionValues copies account id and profile fields into v.
	SetConnectionValues(ctx context.Context, api A, v *ConnectionValues) error
	// FetchUserProfile returns the normalized profile of the account.
	FetchUserProfile(ctx context.Context, api A) (UserProfile, error)
}
