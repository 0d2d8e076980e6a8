package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

// ConnectionRecord es una fila de la tabla de conexiones. Las credenciales
// viajan ya codificadas por el codec; el engine nunca las interpreta.
type ConnectionRecord struct {
	UserID         string
	ProviderID     string
	ProviderUserID string
	// Rank ordena las conexiones de un usuario a un provider; 1 es la primaria.
	Rank         int
	DisplayName  string
	ProfileURL   string
	ImageURL     string
	AccessToken  string
	Secret       string
	RefreshToken string
	// ExpireTime en epoch millis; 0 no expira.
	ExpireTime int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key retorna la ConnectionKey del registro.
func (r ConnectionRecord) Key() connect.ConnectionKey {
	return connect.NewKey(r.ProviderID, r.ProviderUserID)
}

// ConnectionStore es el contrato que implementa cada engine.
// Los listados vienen ordenados por provider_id, rank.
type ConnectionStore interface {
	// FindByUser lista todas las conexiones de un usuario.
	FindByUser(ctx context.Context, userID string) ([]ConnectionRecord, error)

	// FindByUserProvider lista las conexiones de un usuario a un provider.
	FindByUserProvider(ctx context.Context, userID, providerID string) ([]ConnectionRecord, error)

	// FindByUserProviderUsers lista las conexiones del usuario cuyas keys
	// estén en providerUserIDs (provider → ids).
	FindByUserProviderUsers(ctx context.Context, userID string, providerUserIDs map[string][]string) ([]ConnectionRecord, error)

	// Get busca una conexión exacta. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, userID, providerID, providerUserID string) (*ConnectionRecord, error)

	// FindUserIDs lista los usuarios locales conectados a la cuenta.
	FindUserIDs(ctx context.Context, providerID, providerUserID string) ([]string, error)

	// FindUserIDsConnectedTo lista los usuarios locales conectados a
	// cualquiera de las cuentas dadas.
	FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error)

	// Insert asigna rank = max+1 y crea el registro de forma atómica.
	// Retorna ErrDuplicateConnection si la key ya existe para el usuario.
	Insert(ctx context.Context, rec ConnectionRecord) (rank int, err error)

	// Update sobrescribe perfil y credenciales; no toca el rank.
	// Retorna ErrNotFound si no existe.
	Update(ctx context.Context, rec ConnectionRecord) error

	// DeleteProvider elimina todas las conexiones del usuario al provider.
	DeleteProvider(ctx context.Context, userID, providerID string) error

	// Delete elimina una conexión (idempotente) y re-secuencia los ranks
	// restantes desde 1.
	Delete(ctx context.Context, userID, providerID, providerUserID string) error
}
