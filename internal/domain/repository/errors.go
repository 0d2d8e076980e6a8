package repository

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: duplicado, constraint violation).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoDatabase indica que no hay base de datos configurada.
	ErrNoDatabase = errors.New("no database configured")

	// ErrNotConnected indica que el usuario no tiene conexión con el provider.
	ErrNotConnected = errors.New("not connected")

	// ErrDuplicateConnection indica que la cuenta del provider ya está
	// conectada a este usuario. Es un ErrConflict.
	ErrDuplicateConnection = fmt.Errorf("duplicate connection: %w", ErrConflict)

	// ErrNoSuchConnection indica que no existe conexión con esa key.
	// Es un ErrNotFound.
	ErrNoSuchConnection = fmt.Errorf("no such connection: %w", ErrNotFound)
)

// DuplicateConnectionError lleva la key rechazada.
type DuplicateConnectionError struct {
	Key connect.ConnectionKey
}

func (e *DuplicateConnectionError) Error() string {
	return fmt.Sprintf("connection %s already exists", e.Key)
}

func (e *DuplicateConnectionError) Unwrap() error { return ErrDuplicateConnection }

// NoSuchConnectionError lleva la key buscada.
type NoSuchConnectionError struct {
	Key connect.ConnectionKey
}

func (e *NoSuchConnectionError) Error() string {
	return fmt.Sprintf("no connection %s", e.Key)
}

func (e *NoSuchConnectionError) Unwrap() error { return ErrNoSuchConnection }

// NotConnectedError lleva el provider sin conexión.
type NotConnectedError struct {
	ProviderID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected to %s", e.ProviderID)
}

func (e *NotConnectedError) Unwrap() error { return ErrNotConnected }

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNoDatabase verifica si el error es ErrNoDatabase.
func IsNoDatabase(err error) bool {
	return errors.Is(err, ErrNoDatabase)
}

// IsDuplicateConnection verifica si el error es ErrDuplicateConnection.
func IsDuplicateConnection(err error) bool {
	return errors.Is(err, ErrDuplicateConnection)
}

// IsNotConnected verifica si el error es ErrNotConnected.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
