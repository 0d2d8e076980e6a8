package social

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// UserLoader confirma que el usuario local existe y puede autenticarse
// (ej: no está bloqueado). Es opcional.
type UserLoader interface {
	LoadUser(ctx context.Context, userID string) error
}

// UserLoaderFunc adapta una función a UserLoader.
type UserLoaderFunc func(ctx context.Context, userID string) error

func (f UserLoaderFunc) LoadUser(ctx context.Context, userID string) error { return f(ctx, userID) }

// AuthenticationProvider resuelve el usuario local de una conexión.
type AuthenticationProvider struct {
	users  repository.UsersConnectionRepository
	loader UserLoader
}

// NewAuthenticationProvider crea el provider; loader puede ser nil.
func NewAuthenticationProvider(users repository.UsersConnectionRepository, loader UserLoader) *AuthenticationProvider {
	return &AuthenticationProvider{users: users, loader: loader}
}

// Authenticate retorna el único usuario vinculado a la cuenta de conn y
// actualiza su conexión con el perfil y la credencial recién obtenidos.
// Sin usuarios retorna ErrBadCredentials; con varios, *MultipleUsersError.
func (p *AuthenticationProvider) Authenticate(ctx context.Context, conn connect.Connection) (string, error) {
	key := conn.Key()
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.provider"),
		logger.ProviderID(key.ProviderID),
		logger.ProviderUserID(key.ProviderUserID),
	)

	ids, err := p.users.FindUserIDsWithConnection(ctx, conn)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrBadCredentials
	case 1:
	default:
		log.Warn("provider account bound to multiple users", logger.Count(len(ids)))
		return "", &MultipleUsersError{Key: key, UserIDs: ids}
	}

	userID := ids[0]
	if p.loader != nil {
		if err := p.loader.LoadUser(ctx, userID); err != nil {
			return "", fmt.Errorf("social: load user %s: %w", userID, err)
		}
	}
	repo, err := p.users.CreateConnectionRepository(userID)
	if err != nil {
		return "", err
	}
	if err := repo.UpdateConnection(ctx, conn); err != nil {
		return "", err
	}
	log.Info("signed in", logger.LocalUserID(userID))
	return userID, nil
}
