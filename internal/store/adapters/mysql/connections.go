package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

const (
	// errDupEntry es ER_DUP_ENTRY.
	errDupEntry = 1062
	// errLockDeadlock es ER_LOCK_DEADLOCK; los gap locks de FOR UPDATE
	// sobre un rango vacío lo producen con inserts concurrentes.
	errLockDeadlock = 1213

	insertAttempts = 16
)

const selectColumns = "SELECT user_id, provider_id, provider_user_id, `rank`, " +
	"COALESCE(display_name, ''), COALESCE(profile_url, ''), COALESCE(image_url, ''), " +
	"access_token, COALESCE(secret, ''), COALESCE(refresh_token, ''), COALESCE(expire_time, 0), " +
	"created_at, updated_at FROM user_connection"

type connectionStore struct {
	db *sql.DB
}

var _ repository.ConnectionStore = (*connectionStore)(nil)

// nullIfEmpty returns sql.NullString for optional string fields.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (repository.ConnectionRecord, error) {
	var r repository.ConnectionRecord
	err := row.Scan(
		&r.UserID, &r.ProviderID, &r.ProviderUserID, &r.Rank,
		&r.DisplayName, &r.ProfileURL, &r.ImageURL,
		&r.AccessToken, &r.Secret, &r.RefreshToken, &r.ExpireTime,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (s *connectionStore) query(ctx context.Context, q string, args ...any) ([]repository.ConnectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

func (s *connectionStore) queryStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *connectionStore) FindByUser(ctx context.Context, userID string) ([]repository.ConnectionRecord, error) {
	return s.query(ctx, selectColumns+" WHERE user_id = ? ORDER BY provider_id, `rank`", userID)
}

func (s *connectionStore) FindByUserProvider(ctx context.Context, userID, providerID string) ([]repository.ConnectionRecord, error) {
	return s.query(ctx, selectColumns+" WHERE user_id = ? AND provider_id = ? ORDER BY `rank`", userID, providerID)
}

func (s *connectionStore) FindByUserProviderUsers(ctx context.Context, userID string, providerUserIDs map[string][]string) ([]repository.ConnectionRecord, error) {
	var conds []string
	args := []any{userID}
	for p, ids := range providerUserIDs {
		if len(ids) == 0 {
			continue
		}
		conds = append(conds, "(provider_id = ? AND provider_user_id IN ("+placeholders(len(ids))+"))")
		args = append(args, p)
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}
	q := selectColumns + " WHERE user_id = ? AND (" + strings.Join(conds, " OR ") + ") ORDER BY provider_id, `rank`"
	return s.query(ctx, q, args...)
}

func (s *connectionStore) Get(ctx context.Context, userID, providerID, providerUserID string) (*repository.ConnectionRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		selectColumns+" WHERE user_id = ? AND provider_id = ? AND provider_user_id = ?",
		userID, providerID, providerUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *connectionStore) FindUserIDs(ctx context.Context, providerID, providerUserID string) ([]string, error) {
	return s.queryStrings(ctx,
		"SELECT user_id FROM user_connection WHERE provider_id = ? AND provider_user_id = ? ORDER BY user_id",
		providerID, providerUserID)
}

func (s *connectionStore) FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error) {
	if len(providerUserIDs) == 0 {
		return nil, nil
	}
	args := []any{providerID}
	for _, id := range providerUserIDs {
		args = append(args, id)
	}
	return s.queryStrings(ctx,
		"SELECT DISTINCT user_id FROM user_connection WHERE provider_id = ? AND provider_user_id IN ("+
			placeholders(len(providerUserIDs))+") ORDER BY user_id",
		args...)
}

// Insert toma MAX(rank) con FOR UPDATE: InnoDB bloquea el rango del índice
// (user_id, provider_id, rank) y serializa las altas concurrentes.
func (s *connectionStore) Insert(ctx context.Context, rec repository.ConnectionRecord) (int, error) {
	var (
		rank int
		err  error
	)
	for attempt := 0; attempt < insertAttempts; attempt++ {
		rank, err = s.insertOnce(ctx, rec)
		if !isRetryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}
	return rank, err
}

func (s *connectionStore) insertOnce(ctx context.Context, rec repository.ConnectionRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var maxRank int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(`rank`), 0) FROM user_connection WHERE user_id = ? AND provider_id = ? FOR UPDATE",
		rec.UserID, rec.ProviderID).Scan(&maxRank); err != nil {
		return 0, err
	}
	rank := maxRank + 1

	_, err = tx.ExecContext(ctx,
		"INSERT INTO user_connection (user_id, provider_id, provider_user_id, `rank`, "+
			"display_name, profile_url, image_url, access_token, secret, refresh_token, expire_time) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.UserID, rec.ProviderID, rec.ProviderUserID, rank,
		nullIfEmpty(rec.DisplayName), nullIfEmpty(rec.ProfileURL), nullIfEmpty(rec.ImageURL),
		rec.AccessToken, nullIfEmpty(rec.Secret), nullIfEmpty(rec.RefreshToken), nullIfZero(rec.ExpireTime))
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return 0, repository.ErrDuplicateConnection
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rank, nil
}

func isRetryable(err error) bool {
	var myErr *mysqldrv.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == errLockDeadlock || (myErr.Number == errDupEntry && !strings.Contains(myErr.Message, "PRIMARY"))
}

func isPrimaryKeyViolation(err error) bool {
	var myErr *mysqldrv.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry && strings.Contains(myErr.Message, "PRIMARY")
}

func (s *connectionStore) Update(ctx context.Context, rec repository.ConnectionRecord) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE user_connection SET display_name = ?, profile_url = ?, image_url = ?, "+
			"access_token = ?, secret = ?, refresh_token = ?, expire_time = ?, updated_at = CURRENT_TIMESTAMP(6) "+
			"WHERE user_id = ? AND provider_id = ? AND provider_user_id = ?",
		nullIfEmpty(rec.DisplayName), nullIfEmpty(rec.ProfileURL), nullIfEmpty(rec.ImageURL),
		rec.AccessToken, nullIfEmpty(rec.Secret), nullIfEmpty(rec.RefreshToken), nullIfZero(rec.ExpireTime),
		rec.UserID, rec.ProviderID, rec.ProviderUserID)
	if err != nil {
		return err
	}
	// con clientFoundRows RowsAffected cuenta filas encontradas.
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *connectionStore) DeleteProvider(ctx context.Context, userID, providerID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM user_connection WHERE user_id = ? AND provider_id = ?", userID, providerID)
	return err
}

func (s *connectionStore) Delete(ctx context.Context, userID, providerID, providerUserID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM user_connection WHERE user_id = ? AND provider_id = ? AND provider_user_id = ?",
		userID, providerID, providerUserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := resequence(ctx, tx, userID, providerID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// resequence renumera desde 1 en orden ascendente; cada rank nuevo es <= al
// viejo, así que el índice único nunca ve un duplicado intermedio.
func resequence(ctx context.Context, tx *sql.Tx, userID, providerID string) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT provider_user_id, `rank` FROM user_connection WHERE user_id = ? AND provider_id = ? ORDER BY `rank` FOR UPDATE",
		userID, providerID)
	if err != nil {
		return err
	}
	type row struct {
		id   string
		rank int
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.rank); err != nil {
			rows.Close()
			return err
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, r := range all {
		if r.rank == i+1 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE user_connection SET `rank` = ? WHERE user_id = ? AND provider_id = ? AND provider_user_id = ?",
			i+1, userID, providerID, r.id); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
