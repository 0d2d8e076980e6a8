package connect

import (
	"errors"
	"strings"
	"time"
)

// ConnectionKey identifica una cuenta del lado del provider.
type ConnectionKey struct {
	ProviderID     string `json:"provider_id"`
	ProviderUserID string `json:"provider_user_id"`
}

// NewKey builds a ConnectionKey.
func NewKey(providerID, providerUserID string) ConnectionKey {
	return ConnectionKey{ProviderID: providerID, ProviderUserID: providerUserID}
}

func (k ConnectionKey) String() string { return k.ProviderID + ":" + k.ProviderUserID }

// ConnectionData is the serializable snapshot of a Connection.
type ConnectionData struct {
	ProviderID     string `json:"provider_id"`
	ProviderUserID string `json:"provider_user_id"`
	DisplayName    string `json:"display_name,omitempty"`
	ProfileURL     string `json:"profile_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	AccessToken    string `json:"access_token"`
	// Secret is the OAuth1 token secret; empty for OAuth2.
	Secret string `json:"secret,omitempty"`
	// RefreshToken is OAuth2 only.
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpireTime is epoch millis; 0 means non-expiring.
	ExpireTime int64 `json:"expire_time,omitempty"`
}

// ErrInvalidData is returned for snapshots missing provider id or access token.
var ErrInvalidData = errors.New("connect: connection data requires provider id and access token")

// Key returns the ConnectionKey of the snapshot.
func (d ConnectionData) Key() ConnectionKey { return NewKey(d.ProviderID, d.ProviderUserID) }

// Validate checks the snapshot invariants.
func (d ConnectionData) Validate() error {
	if strings.TrimSpace(d.ProviderID) == "" || d.AccessToken == "" {
		return ErrInvalidData
	}
	return nil
}

// Expired reports whether ExpireTime lies in the past.
func (d ConnectionData) Expired(now time.Time) bool {
	return d.ExpireTime != 0 && now.UnixMilli() >= d.ExpireTime
}

// UserProfile is the normalized account profile a provider returns.
type UserProfile struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
}

// ConnectionValues is filled by an APIAdapter from the live API.
type ConnectionValues struct {
	ProviderUserID string
	DisplayName    string
	ProfileURL     string
	ImageURL       string
}
