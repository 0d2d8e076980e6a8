package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

// Lookups por tipo de API: el provider se resuelve en el registry y la
// conexión se devuelve tipada.

func providerFor[A any](reg *connect.Registry) (string, error) {
	f, err := connect.FactoryFor[A](reg)
	if err != nil {
		return "", err
	}
	return f.ProviderID(), nil
}

func typed[A any](c connect.Connection) (connect.APIConnection[A], error) {
	ac, ok := connect.As[A](c)
	if !ok {
		return nil, fmt.Errorf("connection %s does not expose the requested api type", c.Key())
	}
	return ac, nil
}

// PrimaryConnection es GetPrimaryConnection por tipo de API.
// Retorna *repository.NotConnectedError si no hay conexiones.
func PrimaryConnection[A any](ctx context.Context, reg *connect.Registry, repo repository.ConnectionRepository) (connect.APIConnection[A], error) {
	providerID, err := providerFor[A](reg)
	if err != nil {
		return nil, err
	}
	c, err := repo.GetPrimaryConnection(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return typed[A](c)
}

// FindPrimaryConnection es FindPrimaryConnection por tipo de API; nil si
// no hay conexiones.
func FindPrimaryConnection[A any](ctx context.Context, reg *connect.Registry, repo repository.ConnectionRepository) (connect.APIConnection[A], error) {
	providerID, err := providerFor[A](reg)
	if err != nil {
		return nil, err
	}
	c, err := repo.FindPrimaryConnection(ctx, providerID)
	if err != nil || c == nil {
		return nil, err
	}
	return typed[A](c)
}

// ConnectionsByAPI es FindConnectionsToProvider por tipo de API.
func ConnectionsByAPI[A any](ctx context.Context, reg *connect.Registry, repo repository.ConnectionRepository) ([]connect.APIConnection[A], error) {
	providerID, err := providerFor[A](reg)
	if err != nil {
		return nil, err
	}
	conns, err := repo.FindConnectionsToProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	out := make([]connect.APIConnection[A], 0, len(conns))
	for _, c := range conns {
		ac, err := typed[A](c)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, nil
}

// ConnectionByAPI es GetConnection por tipo de API y provider user id.
func ConnectionByAPI[A any](ctx context.Context, reg *connect.Registry, repo repository.ConnectionRepository, providerUserID string) (connect.APIConnection[A], error) {
	providerID, err := providerFor[A](reg)
	if err != nil {
		return nil, err
	}
	c, err := repo.GetConnection(ctx, connect.NewKey(providerID, providerUserID))
	if err != nil {
		return nil, err
	}
	return typed[A](c)
}
