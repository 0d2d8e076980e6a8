package social

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// AddResult es el resultado de agregar una conexión a un usuario.
type AddResult int

const (
	// Added: la conexión se persistió.
	Added AddResult = iota
	// AlreadyConnected: la cuenta ya estaba vinculada a este usuario.
	AlreadyConnected
	// RejectedOtherUser: la cuenta pertenece a otro usuario y la política
	// no admite MultiUserID.
	RejectedOtherUser
	// RejectedSecondAccount: el usuario ya tiene una cuenta del provider y
	// la política no admite MultiProviderUserID.
	RejectedSecondAccount
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyConnected:
		return "already_connected"
	case RejectedOtherUser:
		return "rejected_other_user"
	case RejectedSecondAccount:
		return "rejected_second_account"
	}
	return "unknown"
}

// Connector agrega conexiones a usuarios autenticados aplicando la
// CardinalityPolicy del provider.
type Connector struct {
	users repository.UsersConnectionRepository
}

func NewConnector(users repository.UsersConnectionRepository) *Connector {
	return &Connector{users: users}
}

// AddConnection vincula conn a userID. Los rechazos de política no son
// errores: se informan en AddResult.
func (c *Connector) AddConnection(ctx context.Context, userID string, conn connect.Connection, policy CardinalityPolicy) (AddResult, error) {
	key := conn.Key()
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.connector"),
		logger.LocalUserID(userID),
		logger.ProviderID(key.ProviderID),
		logger.ProviderUserID(key.ProviderUserID),
	)

	repo, err := c.users.CreateConnectionRepository(userID)
	if err != nil {
		return 0, err
	}

	if _, err := repo.GetConnection(ctx, key); err == nil {
		return AlreadyConnected, nil
	} else if !repository.IsNotFound(err) {
		return 0, err
	}

	if !policy.MultiUserID {
		ids, err := c.users.FindUserIDsConnectedTo(ctx, key.ProviderID, []string{key.ProviderUserID})
		if err != nil {
			return 0, err
		}
		if len(ids) > 0 {
			log.Info("connection rejected: account bound to another user")
			return RejectedOtherUser, nil
		}
	}
	if !policy.MultiProviderUserID {
		existing, err := repo.FindPrimaryConnection(ctx, key.ProviderID)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			log.Info("connection rejected: user already has an account of this provider")
			return RejectedSecondAccount, nil
		}
	}

	if err := repo.AddConnection(ctx, conn); err != nil {
		if repository.IsDuplicateConnection(err) {
			return AlreadyConnected, nil
		}
		return 0, err
	}

	// el perfil se refresca después de persistir; un fallo acá no deshace el alta
	if err := conn.Sync(ctx); err != nil {
		log.Warn("sync after connect failed", logger.Err(err))
	} else if err := repo.UpdateConnection(ctx, conn); err != nil {
		log.Warn("persisting synced profile failed", logger.Err(err))
	}
	log.Info("connection added")
	return Added, nil
}
