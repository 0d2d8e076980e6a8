package connect

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIErrorKind classifies failures of provider API calls.
type APIErrorKind int

const (
	KindOther APIErrorKind = iota
	// KindUnauthorized: the credential was revoked or is invalid.
	KindUnauthorized
	// KindExpiredAuthorization: the access token expired.
	KindExpiredAuthorization
	KindRateLimited
	KindProviderDown
	// KindDuplicate: the provider rejected duplicate content.
	KindDuplicate
)

var kindNames = map[APIErrorKind]string{
	KindOther:                "other",
	KindUnauthorized:         "unauthorized",
	KindExpiredAuthorization: "expired_authorization",
	KindRateLimited:          "rate_limited",
	KindProviderDown:         "provider_down",
	KindDuplicate:            "duplicate",
}

func (k APIErrorKind) String() string { return kindNames[k] }

// APIError is a classified provider API failure.
type APIError struct {
	ProviderID string
	Kind       APIErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("connect: %s api error (%s, status %d)", e.ProviderID, e.Kind, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed later with the same
// credential.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindProviderDown
}

// RequiresReconnect reports whether the credential must be replaced through
// the connect flow.
func (e *APIError) RequiresReconnect() bool {
	return e.Kind == KindUnauthorized || e.Kind == KindExpiredAuthorization
}

// ClassifyHTTP maps a provider HTTP response onto an APIError. message is
// the provider's error text, used to tell expired tokens from revoked ones.
func ClassifyHTTP(providerID string, status int, message string) *APIError {
	e := &APIError{ProviderID: providerID, StatusCode: status, Message: message}
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized && strings.Contains(lower, "expired"):
		e.Kind = KindExpiredAuthorization
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status == http.StatusForbidden && strings.Contains(lower, "rate limit"):
		e.Kind = KindRateLimited
	case status == http.StatusForbidden && strings.Contains(lower, "duplicate"):
		e.Kind = KindDuplicate
	case status >= 500:
		e.Kind = KindProviderDown
	default:
		e.Kind = KindOther
	}
	return e
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
