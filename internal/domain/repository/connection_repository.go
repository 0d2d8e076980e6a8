package repository

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

// ConnectionRepository es la vista de las conexiones de un usuario local.
// Se obtiene con UsersConnectionRepository.CreateConnectionRepository.
type ConnectionRepository interface {
	// FindAllConnections agrupa por provider. Incluye una entrada (quizás
	// vacía) por cada provider registrado.
	FindAllConnections(ctx context.Context) (map[string][]connect.Connection, error)

	// FindConnectionsToProvider lista por rank ascendente.
	FindConnectionsToProvider(ctx context.Context, providerID string) ([]connect.Connection, error)

	// FindConnectionsForUsers busca por provider → provider user ids.
	// Un mapa vacío es ErrInvalidInput.
	FindConnectionsForUsers(ctx context.Context, providerUserIDs map[string][]string) (map[string][]connect.Connection, error)

	// GetConnection retorna *NoSuchConnectionError si no existe.
	GetConnection(ctx context.Context, key connect.ConnectionKey) (connect.Connection, error)

	// GetPrimaryConnection retorna *NotConnectedError si no hay conexiones.
	GetPrimaryConnection(ctx context.Context, providerID string) (connect.Connection, error)

	// FindPrimaryConnection retorna nil si no hay conexiones.
	FindPrimaryConnection(ctx context.Context, providerID string) (connect.Connection, error)

	// AddConnection retorna *DuplicateConnectionError si la key ya existe.
	AddConnection(ctx context.Context, c connect.Connection) error

	// UpdateConnection sobrescribe perfil y credenciales.
	UpdateConnection(ctx context.Context, c connect.Connection) error

	// RemoveConnections es idempotente.
	RemoveConnections(ctx context.Context, providerID string) error

	// RemoveConnection es idempotente.
	RemoveConnection(ctx context.Context, key connect.ConnectionKey) error
}

// ConnectionSignUp crea un usuario local implícito para una conexión sin
// usuario asociado. Retorna "" para no crear ninguno.
type ConnectionSignUp interface {
	Execute(ctx context.Context, c connect.Connection) (string, error)
}

// ConnectionSignUpFunc adapta una función a ConnectionSignUp.
type ConnectionSignUpFunc func(ctx context.Context, c connect.Connection) (string, error)

func (f ConnectionSignUpFunc) Execute(ctx context.Context, c connect.Connection) (string, error) {
	return f(ctx, c)
}

// UsersConnectionRepository es el punto de entrada global.
type UsersConnectionRepository interface {
	// FindUserIDsWithConnection busca los usuarios locales de la cuenta de
	// c. Sin resultados y con ConnectionSignUp configurado, el hook puede
	// crear un usuario y la conexión queda persistida para él.
	FindUserIDsWithConnection(ctx context.Context, c connect.Connection) ([]string, error)

	// FindUserIDsConnectedTo retorna el conjunto de usuarios conectados a
	// cualquiera de las cuentas.
	FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error)

	// CreateConnectionRepository es la única forma de obtener un
	// ConnectionRepository.
	CreateConnectionRepository(userID string) (ConnectionRepository, error)
}
