package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/security/secretbox"
)

// ConnectionsDeps contiene las dependencias del repositorio de conexiones.
type ConnectionsDeps struct {
	Store    repository.ConnectionStore  // engine abierto con OpenAdapter
	Registry *connect.Registry           // factories de los providers habilitados
	Codec    secretbox.Codec             // cifrado de credenciales (nil = sin cifrar)
	SignUp   repository.ConnectionSignUp // opcional: alta implícita de usuarios

	// RefreshExpired refresca al leer las conexiones OAuth2 vencidas con
	// refresh token y persiste la credencial nueva.
	RefreshExpired bool
}

// UsersConnectionRepository implementa repository.UsersConnectionRepository
// sobre cualquier ConnectionStore.
type UsersConnectionRepository struct {
	store          repository.ConnectionStore
	registry       *connect.Registry
	codec          secretbox.Codec
	signUp         repository.ConnectionSignUp
	refreshExpired bool
}

var _ repository.UsersConnectionRepository = (*UsersConnectionRepository)(nil)

// NewUsersConnectionRepository valida las dependencias y construye el repositorio.
func NewUsersConnectionRepository(d ConnectionsDeps) (*UsersConnectionRepository, error) {
	if d.Store == nil {
		return nil, repository.ErrNoDatabase
	}
	if d.Registry == nil {
		return nil, errors.New("store: connection registry is required")
	}
	codec := d.Codec
	if codec == nil {
		codec = secretbox.Noop{}
	}
	return &UsersConnectionRepository{
		store:          d.Store,
		registry:       d.Registry,
		codec:          codec,
		signUp:         d.SignUp,
		refreshExpired: d.RefreshExpired,
	}, nil
}

func (r *UsersConnectionRepository) FindUserIDsWithConnection(ctx context.Context, c connect.Connection) ([]string, error) {
	key := c.Key()
	ids, err := r.store.FindUserIDs(ctx, key.ProviderID, key.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("find user ids for %s: %w", key, err)
	}
	if len(ids) > 0 || r.signUp == nil {
		return ids, nil
	}

	log := logger.From(ctx).With(logger.Layer("repository"), logger.Component("store.connections"))

	newUserID, err := r.signUp.Execute(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("connection sign up: %w", err)
	}
	if newUserID == "" {
		return nil, nil
	}
	repo, err := r.CreateConnectionRepository(newUserID)
	if err != nil {
		return nil, err
	}
	if err := repo.AddConnection(ctx, c); err != nil {
		return nil, err
	}
	log.Info("implicit sign up",
		logger.ProviderID(key.ProviderID),
		logger.ProviderUserID(key.ProviderUserID),
		logger.LocalUserID(newUserID),
	)
	return []string{newUserID}, nil
}

func (r *UsersConnectionRepository) FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error) {
	if len(providerUserIDs) == 0 {
		return nil, nil
	}
	ids, err := r.store.FindUserIDsConnectedTo(ctx, providerID, providerUserIDs)
	if err != nil {
		return nil, fmt.Errorf("find user ids connected to %s: %w", providerID, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateConnectionRepository retorna la vista de las conexiones de userID.
func (r *UsersConnectionRepository) CreateConnectionRepository(userID string) (repository.ConnectionRepository, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", repository.ErrInvalidInput)
	}
	return &connectionRepository{parent: r, userID: userID}, nil
}

// connectionRepository es la vista de un usuario. Las credenciales se
// cifran al escribir y se descifran al restaurar la conexión.
type connectionRepository struct {
	parent *UsersConnectionRepository
	userID string
}

var _ repository.ConnectionRepository = (*connectionRepository)(nil)

func (c *connectionRepository) log(ctx context.Context, key connect.ConnectionKey) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("repository"),
		logger.Component("store.connections"),
		logger.LocalUserID(c.userID),
		logger.ProviderID(key.ProviderID),
		logger.ProviderUserID(key.ProviderUserID),
	)
}

func (c *connectionRepository) FindAllConnections(ctx context.Context) (map[string][]connect.Connection, error) {
	recs, err := c.parent.store.FindByUser(ctx, c.userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]connect.Connection)
	for _, id := range c.parent.registry.ProviderIDs() {
		out[id] = []connect.Connection{}
	}
	conns, err := c.restoreAll(ctx, recs)
	if err != nil {
		return nil, err
	}
	for _, conn := range conns {
		id := conn.Key().ProviderID
		out[id] = append(out[id], conn)
	}
	return out, nil
}

func (c *connectionRepository) FindConnectionsToProvider(ctx context.Context, providerID string) ([]connect.Connection, error) {
	recs, err := c.parent.store.FindByUserProvider(ctx, c.userID, providerID)
	if err != nil {
		return nil, err
	}
	return c.restoreAll(ctx, recs)
}

func (c *connectionRepository) FindConnectionsForUsers(ctx context.Context, providerUserIDs map[string][]string) (map[string][]connect.Connection, error) {
	if len(providerUserIDs) == 0 {
		return nil, fmt.Errorf("%w: provider user ids must not be empty", repository.ErrInvalidInput)
	}
	recs, err := c.parent.store.FindByUserProviderUsers(ctx, c.userID, providerUserIDs)
	if err != nil {
		return nil, err
	}
	conns, err := c.restoreAll(ctx, recs)
	if err != nil {
		return nil, err
	}

	byKey := make(map[connect.ConnectionKey]connect.Connection, len(conns))
	for _, conn := range conns {
		byKey[conn.Key()] = conn
	}
	// respeta el orden de los ids pedidos
	out := make(map[string][]connect.Connection, len(providerUserIDs))
	for providerID, ids := range providerUserIDs {
		list := []connect.Connection{}
		for _, id := range ids {
			if conn, ok := byKey[connect.NewKey(providerID, id)]; ok {
				list = append(list, conn)
			}
		}
		out[providerID] = list
	}
	return out, nil
}

func (c *connectionRepository) GetConnection(ctx context.Context, key connect.ConnectionKey) (connect.Connection, error) {
	rec, err := c.parent.store.Get(ctx, c.userID, key.ProviderID, key.ProviderUserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &repository.NoSuchConnectionError{Key: key}
		}
		return nil, err
	}
	return c.restore(ctx, *rec)
}

func (c *connectionRepository) GetPrimaryConnection(ctx context.Context, providerID string) (connect.Connection, error) {
	conn, err := c.FindPrimaryConnection(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &repository.NotConnectedError{ProviderID: providerID}
	}
	return conn, nil
}

func (c *connectionRepository) FindPrimaryConnection(ctx context.Context, providerID string) (connect.Connection, error) {
	recs, err := c.parent.store.FindByUserProvider(ctx, c.userID, providerID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return c.restore(ctx, recs[0])
}

func (c *connectionRepository) AddConnection(ctx context.Context, conn connect.Connection) error {
	rec, err := c.record(conn)
	if err != nil {
		return err
	}
	rank, err := c.parent.store.Insert(ctx, rec)
	if err != nil {
		if repository.IsDuplicateConnection(err) {
			return &repository.DuplicateConnectionError{Key: conn.Key()}
		}
		return err
	}
	c.log(ctx, conn.Key()).Debug("connection added", logger.Int("rank", rank))
	return nil
}

func (c *connectionRepository) UpdateConnection(ctx context.Context, conn connect.Connection) error {
	rec, err := c.record(conn)
	if err != nil {
		return err
	}
	if err := c.parent.store.Update(ctx, rec); err != nil {
		if repository.IsNotFound(err) {
			return &repository.NoSuchConnectionError{Key: conn.Key()}
		}
		return err
	}
	return nil
}

func (c *connectionRepository) RemoveConnections(ctx context.Context, providerID string) error {
	return c.parent.store.DeleteProvider(ctx, c.userID, providerID)
}

func (c *connectionRepository) RemoveConnection(ctx context.Context, key connect.ConnectionKey) error {
	return c.parent.store.Delete(ctx, c.userID, key.ProviderID, key.ProviderUserID)
}

// record convierte la conexión en registro cifrando las credenciales.
func (c *connectionRepository) record(conn connect.Connection) (repository.ConnectionRecord, error) {
	d := conn.CreateData()
	if err := d.Validate(); err != nil {
		return repository.ConnectionRecord{}, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	codec := c.parent.codec
	access, err := codec.Encrypt(d.AccessToken)
	if err != nil {
		return repository.ConnectionRecord{}, fmt.Errorf("encrypt access token: %w", err)
	}
	secret, err := secretbox.EncryptOptional(codec, d.Secret)
	if err != nil {
		return repository.ConnectionRecord{}, fmt.Errorf("encrypt secret: %w", err)
	}
	refresh, err := secretbox.EncryptOptional(codec, d.RefreshToken)
	if err != nil {
		return repository.ConnectionRecord{}, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return repository.ConnectionRecord{
		UserID:         c.userID,
		ProviderID:     d.ProviderID,
		ProviderUserID: d.ProviderUserID,
		DisplayName:    d.DisplayName,
		ProfileURL:     d.ProfileURL,
		ImageURL:       d.ImageURL,
		AccessToken:    access,
		Secret:         secret,
		RefreshToken:   refresh,
		ExpireTime:     d.ExpireTime,
	}, nil
}

// data descifra un registro.
func (c *connectionRepository) data(rec repository.ConnectionRecord) (connect.ConnectionData, error) {
	codec := c.parent.codec
	access, err := codec.Decrypt(rec.AccessToken)
	if err != nil {
		return connect.ConnectionData{}, fmt.Errorf("decrypt access token of %s: %w", rec.Key(), err)
	}
	secret, err := secretbox.DecryptOptional(codec, rec.Secret)
	if err != nil {
		return connect.ConnectionData{}, fmt.Errorf("decrypt secret of %s: %w", rec.Key(), err)
	}
	refresh, err := secretbox.DecryptOptional(codec, rec.RefreshToken)
	if err != nil {
		return connect.ConnectionData{}, fmt.Errorf("decrypt refresh token of %s: %w", rec.Key(), err)
	}
	return connect.ConnectionData{
		ProviderID:     rec.ProviderID,
		ProviderUserID: rec.ProviderUserID,
		DisplayName:    rec.DisplayName,
		ProfileURL:     rec.ProfileURL,
		ImageURL:       rec.ImageURL,
		AccessToken:    access,
		Secret:         secret,
		RefreshToken:   refresh,
		ExpireTime:     rec.ExpireTime,
	}, nil
}

func (c *connectionRepository) restore(ctx context.Context, rec repository.ConnectionRecord) (connect.Connection, error) {
	d, err := c.data(rec)
	if err != nil {
		return nil, err
	}
	conn, err := c.parent.registry.Restore(d)
	if err != nil {
		return nil, err
	}
	if c.parent.refreshExpired && conn.HasExpired() {
		c.refresh(ctx, conn)
	}
	return conn, nil
}

// restoreAll omite (y loguea) los registros de providers que ya no están
// registrados; el resto de los errores se propaga.
func (c *connectionRepository) restoreAll(ctx context.Context, recs []repository.ConnectionRecord) ([]connect.Connection, error) {
	out := make([]connect.Connection, 0, len(recs))
	for _, rec := range recs {
		conn, err := c.restore(ctx, rec)
		if err != nil {
			if errors.Is(err, connect.ErrUnknownProvider) {
				c.log(ctx, rec.Key()).Warn("skipping connection of unregistered provider")
				continue
			}
			return nil, err
		}
		out = append(out, conn)
	}
	return out, nil
}

// refresh intenta renovar la credencial vencida y la persiste. Un fallo no
// invalida la lectura: la conexión vuelve vencida y el caller decide.
func (c *connectionRepository) refresh(ctx context.Context, conn connect.Connection) {
	if err := conn.Refresh(ctx); err != nil {
		if !errors.Is(err, connect.ErrNoRefreshToken) && !errors.Is(err, connect.ErrRefreshUnsupported) {
			c.log(ctx, conn.Key()).Warn("refresh of expired connection failed", logger.Err(err))
		}
		return
	}
	if err := c.UpdateConnection(ctx, conn); err != nil {
		c.log(ctx, conn.Key()).Warn("persisting refreshed connection failed", logger.Err(err))
		return
	}
	c.log(ctx, conn.Key()).Debug("expired connection refreshed")
}
