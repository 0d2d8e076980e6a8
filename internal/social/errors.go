package social

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

var (
	// ErrBadCredentials: la cuenta del provider no está vinculada a ningún
	// usuario local.
	ErrBadCredentials = errors.New("social: unknown access token")

	// ErrMultipleUsers: la cuenta está vinculada a más de un usuario local.
	ErrMultipleUsers = errors.New("social: provider account bound to multiple users")

	// ErrAuthenticationNotPossible: el provider es sólo para connect.
	ErrAuthenticationNotPossible = errors.New("social: provider cannot be used to sign in")

	// ErrUnknownService: no hay AuthenticationService para el provider.
	ErrUnknownService = errors.New("social: no authentication service for provider")

	// ErrMissingCallbackParams: el callback no trae code ni oauth_token.
	ErrMissingCallbackParams = errors.New("social: callback without authorization parameters")

	// ErrRequestTokenMissing: no hay request token OAuth1 en la sesión.
	ErrRequestTokenMissing = errors.New("social: no pending request token in session")

	// ErrRequestTokenMismatch: el oauth_token del callback no es el emitido.
	ErrRequestTokenMismatch = errors.New("social: request token mismatch")

	// ErrNotAuthenticated: la operación requiere un usuario en sesión.
	ErrNotAuthenticated = errors.New("social: no authenticated user")
)

// MultipleUsersError lleva los candidatos para que la UI desambigüe.
type MultipleUsersError struct {
	Key     connect.ConnectionKey
	UserIDs []string
}

func (e *MultipleUsersError) Error() string {
	return fmt.Sprintf("social: %s is bound to users %s", e.Key, strings.Join(e.UserIDs, ", "))
}

func (e *MultipleUsersError) Unwrap() error { return ErrMultipleUsers }

// ProviderDeniedError: el provider volvió con error (ej: el usuario
// canceló la autorización).
type ProviderDeniedError struct {
	ProviderID  string
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("social: %s denied authorization: %s (%s)", e.ProviderID, e.Code, e.Description)
	}
	return fmt.Sprintf("social: %s denied authorization: %s", e.ProviderID, e.Code)
}
