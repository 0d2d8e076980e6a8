package oauth2

import (
	"errors"
	"fmt"
)

// ErrProviderAuth is matched by every token-endpoint failure.
var ErrProviderAuth = errors.New("oauth2: provider authorization failed")

// Error describes a rejected token request.
type Error struct {
	StatusCode  int
	Code        string // "error" field of the response, if any
	Description string // "error_description", if any
	Body        string
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("oauth2: token request failed (status %d): %s - %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("oauth2: token request failed (status %d): %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("oauth2: token request failed (status %d)", e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return ErrProviderAuth }

// codeMissingAccessToken marks a 2xx response without access_token.
const codeMissingAccessToken = "missing_access_token"
