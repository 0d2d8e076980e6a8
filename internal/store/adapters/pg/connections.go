// adapters/pg/connections.go — Implementación PostgreSQL de ConnectionStore
// Tabla: user_connection (ver migrations/postgres)
package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

const pkConstraint = "user_connection_pkey"

const selectColumns = `
	SELECT user_id, provider_id, provider_user_id, rank,
	       COALESCE(display_name, ''), COALESCE(profile_url, ''), COALESCE(image_url, ''),
	       access_token, COALESCE(secret, ''), COALESCE(refresh_token, ''), COALESCE(expire_time, 0),
	       created_at, updated_at
	FROM user_connection`

type connectionStore struct {
	pool *pgxpool.Pool
}

var _ repository.ConnectionStore = (*connectionStore)(nil)

func newConnectionStore(pool *pgxpool.Pool) *connectionStore {
	return &connectionStore{pool: pool}
}

func scanRecord(row pgx.Row) (repository.ConnectionRecord, error) {
	var r repository.ConnectionRecord
	err := row.Scan(
		&r.UserID, &r.ProviderID, &r.ProviderUserID, &r.Rank,
		&r.DisplayName, &r.ProfileURL, &r.ImageURL,
		&r.AccessToken, &r.Secret, &r.RefreshToken, &r.ExpireTime,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (s *connectionStore) query(ctx context.Context, sql string, args ...any) ([]repository.ConnectionRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ConnectionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *connectionStore) FindByUser(ctx context.Context, userID string) ([]repository.ConnectionRecord, error) {
	return s.query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY provider_id, rank`, userID)
}

func (s *connectionStore) FindByUserProvider(ctx context.Context, userID, providerID string) ([]repository.ConnectionRecord, error) {
	return s.query(ctx, selectColumns+` WHERE user_id = $1 AND provider_id = $2 ORDER BY rank`, userID, providerID)
}

func (s *connectionStore) FindByUserProviderUsers(ctx context.Context, userID string, providerUserIDs map[string][]string) ([]repository.ConnectionRecord, error) {
	var providers, accounts []string
	for p, ids := range providerUserIDs {
		for _, id := range ids {
			providers = append(providers, p)
			accounts = append(accounts, id)
		}
	}
	if len(providers) == 0 {
		return nil, nil
	}
	return s.query(ctx, selectColumns+`
		WHERE user_id = $1
		  AND (provider_id, provider_user_id) IN (SELECT * FROM unnest($2::text[], $3::text[]))
		ORDER BY provider_id, rank`, userID, providers, accounts)
}

func (s *connectionStore) Get(ctx context.Context, userID, providerID, providerUserID string) (*repository.ConnectionRecord, error) {
	r, err := scanRecord(s.pool.QueryRow(ctx,
		selectColumns+` WHERE user_id = $1 AND provider_id = $2 AND provider_user_id = $3`,
		userID, providerID, providerUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *connectionStore) FindUserIDs(ctx context.Context, providerID, providerUserID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM user_connection WHERE provider_id = $1 AND provider_user_id = $2 ORDER BY user_id`,
		providerID, providerUserID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *connectionStore) FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM user_connection WHERE provider_id = $1 AND provider_user_id = ANY($2::text[]) ORDER BY user_id`,
		providerID, providerUserIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Insert serializa las altas por (usuario, provider) con un advisory lock de
// transacción; la PK rechaza el duplicado aunque dos altas compitan.
func (s *connectionStore) Insert(ctx context.Context, rec repository.ConnectionRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || '/' || $2::text))`, rec.UserID, rec.ProviderID); err != nil {
		return 0, err
	}

	var rank int
	err = tx.QueryRow(ctx, `
		INSERT INTO user_connection (
			user_id, provider_id, provider_user_id, rank,
			display_name, profile_url, image_url,
			access_token, secret, refresh_token, expire_time
		)
		SELECT $1::text, $2::text, $3::text, COALESCE(MAX(rank), 0) + 1,
		       $4::text, $5::text, $6::text, $7::text, $8::text, $9::text, $10::bigint
		FROM user_connection WHERE user_id = $1 AND provider_id = $2
		RETURNING rank`,
		rec.UserID, rec.ProviderID, rec.ProviderUserID,
		nullIfEmpty(rec.DisplayName), nullIfEmpty(rec.ProfileURL), nullIfEmpty(rec.ImageURL),
		rec.AccessToken, nullIfEmpty(rec.Secret), nullIfEmpty(rec.RefreshToken), nullIfZero(rec.ExpireTime),
	).Scan(&rank)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == pkConstraint {
			return 0, repository.ErrDuplicateConnection
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rank, nil
}

func (s *connectionStore) Update(ctx context.Context, rec repository.ConnectionRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_connection
		SET display_name = $4, profile_url = $5, image_url = $6,
		    access_token = $7, secret = $8, refresh_token = $9, expire_time = $10,
		    updated_at = NOW()
		WHERE user_id = $1 AND provider_id = $2 AND provider_user_id = $3`,
		rec.UserID, rec.ProviderID, rec.ProviderUserID,
		nullIfEmpty(rec.DisplayName), nullIfEmpty(rec.ProfileURL), nullIfEmpty(rec.ImageURL),
		rec.AccessToken, nullIfEmpty(rec.Secret), nullIfEmpty(rec.RefreshToken), nullIfZero(rec.ExpireTime),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *connectionStore) DeleteProvider(ctx context.Context, userID, providerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_connection WHERE user_id = $1 AND provider_id = $2`, userID, providerID)
	return err
}

func (s *connectionStore) Delete(ctx context.Context, userID, providerID, providerUserID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || '/' || $2::text))`, userID, providerID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM user_connection WHERE user_id = $1 AND provider_id = $2 AND provider_user_id = $3`,
		userID, providerID, providerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		// El constraint de rank es DEFERRABLE: se valida al final del statement.
		_, err = tx.Exec(ctx, `
			UPDATE user_connection c SET rank = s.rn
			FROM (
				SELECT provider_user_id, ROW_NUMBER() OVER (ORDER BY rank) AS rn
				FROM user_connection WHERE user_id = $1 AND provider_id = $2
			) s
			WHERE c.user_id = $1 AND c.provider_id = $2
			  AND c.provider_user_id = s.provider_user_id AND c.rank <> s.rn`,
			userID, providerID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
