package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

// AppError define la estructura estándar para errores de la API v2
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// Wrap crea un AppError envolviendo un error existente
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

// FromError traduce errores de las capas inferiores a AppError.
// Lo que no reconoce queda como error interno conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if apiErr, ok := connect.AsAPIError(err); ok {
		return fromAPIError(apiErr)
	}
	switch {
	case errors.Is(err, social.ErrNotAuthenticated):
		return ErrUnauthorized.WithCause(err)
	case errors.Is(err, social.ErrUnknownService), errors.Is(err, connect.ErrUnknownProvider):
		return ErrProviderNotFound.WithCause(err)
	case errors.Is(err, repository.ErrNoSuchConnection), errors.Is(err, repository.ErrNotConnected):
		return ErrConnectionNotFound.WithCause(err)
	case errors.Is(err, repository.ErrDuplicateConnection):
		return ErrConnectionExists.WithCause(err)
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict.WithCause(err)
	case errors.Is(err, repository.ErrInvalidInput):
		return ErrBadRequest.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

func fromAPIError(e *connect.APIError) *AppError {
	switch e.Kind {
	case connect.KindUnauthorized, connect.KindExpiredAuthorization:
		return ErrProviderAuthorization.WithDetail(e.ProviderID).WithCause(e)
	case connect.KindRateLimited:
		return ErrProviderRateLimited.WithDetail(e.ProviderID).WithCause(e)
	case connect.KindProviderDown:
		return ErrProviderUnavailable.WithDetail(e.ProviderID).WithCause(e)
	case connect.KindDuplicate:
		return ErrConflict.WithDetail(e.ProviderID).WithCause(e)
	}
	return ErrBadGateway.WithDetail(e.ProviderID).WithCause(e)
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

// ---------------------------------------------------------------------------------
// 400 Bad Request
// ---------------------------------------------------------------------------------

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "Uno de los parámetros de la URL o Query String es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ---------------------------------------------------------------------------------
// 401 / 403
// ---------------------------------------------------------------------------------

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere una sesión autenticada.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ---------------------------------------------------------------------------------
// 404 / 405 / 409
// ---------------------------------------------------------------------------------

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrProviderNotFound = &AppError{
		Code:       "PROVIDER_NOT_FOUND",
		Message:    "El provider especificado no está configurado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrConnectionNotFound = &AppError{
		Code:       "CONNECTION_NOT_FOUND",
		Message:    "No existe la conexión solicitada.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrNoPendingSignUp = &AppError{
		Code:       "NO_PENDING_SIGNUP",
		Message:    "La sesión no tiene un registro social pendiente.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "La ruta solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "La solicitud entra en conflicto con el estado actual del servidor.",
		HTTPStatus: http.StatusConflict,
	}

	ErrConnectionExists = &AppError{
		Code:       "CONNECTION_EXISTS",
		Message:    "La cuenta del provider ya está conectada.",
		HTTPStatus: http.StatusConflict,
	}
)

// ---------------------------------------------------------------------------------
// 429 Too Many Requests
// ---------------------------------------------------------------------------------

var (
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Ha excedido el límite de solicitudes. Intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ---------------------------------------------------------------------------------
// 500+ Server Errors
// ---------------------------------------------------------------------------------

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrBadGateway = &AppError{
		Code:       "PROVIDER_ERROR",
		Message:    "El provider respondió con un error.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderAuthorization = &AppError{
		Code:       "PROVIDER_AUTHORIZATION",
		Message:    "La autorización del provider es inválida o expiró; reconecte la cuenta.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderRateLimited = &AppError{
		Code:       "PROVIDER_RATE_LIMITED",
		Message:    "El provider limitó las solicitudes. Intente más tarde.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "El provider no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
