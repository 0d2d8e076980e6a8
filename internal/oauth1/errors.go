package oauth1

import (
	"errors"
	"fmt"
)

// ErrProviderAuth is matched by every rejected OAuth1 exchange.
var ErrProviderAuth = errors.New("oauth1: provider authorization failed")

// Error describes a rejected request-token or access-token call.
type Error struct {
	StatusCode int
	Leg        string // "request_token" | "access_token"
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oauth1: %s request failed (status %d)", e.Leg, e.StatusCode)
}

func (e *Error) Unwrap() error { return ErrProviderAuth }
