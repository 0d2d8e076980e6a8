package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

const sep = "\x00"

// record es la forma serializada de repository.ConnectionRecord.
type record struct {
	UserID         string    `json:"user_id"`
	ProviderID     string    `json:"provider_id"`
	ProviderUserID string    `json:"provider_user_id"`
	Rank           int       `json:"rank"`
	DisplayName    string    `json:"display_name,omitempty"`
	ProfileURL     string    `json:"profile_url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	AccessToken    string    `json:"access_token"`
	Secret         string    `json:"secret,omitempty"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	ExpireTime     int64     `json:"expire_time,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRecord(r repository.ConnectionRecord) record { return record(r) }

func (r record) domain() repository.ConnectionRecord { return repository.ConnectionRecord(r) }

func connKey(userID, providerID, providerUserID string) []byte {
	return []byte(userID + sep + providerID + sep + providerUserID)
}

func accountKey(providerID, providerUserID, userID string) []byte {
	return []byte(providerID + sep + providerUserID + sep + userID)
}

// ConnectionStore implementa repository.ConnectionStore. bbolt admite un
// solo writer a la vez, así que cada Update es atómico respecto del resto.
type ConnectionStore struct {
	db *bolt.DB
}

var _ repository.ConnectionStore = (*ConnectionStore)(nil)

// NewConnectionStore envuelve una DB abierta con Open.
func NewConnectionStore(db *bolt.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

func scanPrefix(b *bolt.Bucket, prefix []byte, fn func(v []byte) error) error {
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConnectionStore) collect(tx *bolt.Tx, prefix []byte, keep func(record) bool) ([]repository.ConnectionRecord, error) {
	var out []repository.ConnectionRecord
	err := scanPrefix(tx.Bucket(connectionsBucket), prefix, func(v []byte) error {
		var r record
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		if keep == nil || keep(r) {
			out = append(out, r.domain())
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID < out[j].ProviderID
		}
		return out[i].Rank < out[j].Rank
	})
	return out, err
}

func (s *ConnectionStore) FindByUser(ctx context.Context, userID string) (out []repository.ConnectionRecord, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		out, err = s.collect(tx, []byte(userID+sep), nil)
		return err
	})
	return out, err
}

func (s *ConnectionStore) FindByUserProvider(ctx context.Context, userID, providerID string) (out []repository.ConnectionRecord, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		out, err = s.collect(tx, []byte(userID+sep+providerID+sep), nil)
		return err
	})
	return out, err
}

func (s *ConnectionStore) FindByUserProviderUsers(ctx context.Context, userID string, providerUserIDs map[string][]string) (out []repository.ConnectionRecord, err error) {
	want := make(map[string]bool)
	for p, ids := range providerUserIDs {
		for _, id := range ids {
			want[p+sep+id] = true
		}
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		out, err = s.collect(tx, []byte(userID+sep), func(r record) bool {
			return want[r.ProviderID+sep+r.ProviderUserID]
		})
		return err
	})
	return out, err
}

func (s *ConnectionStore) Get(ctx context.Context, userID, providerID, providerUserID string) (*repository.ConnectionRecord, error) {
	var out *repository.ConnectionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(connectionsBucket).Get(connKey(userID, providerID, providerUserID))
		if v == nil {
			return repository.ErrNotFound
		}
		var r record
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		d := r.domain()
		out = &d
		return nil
	})
	return out, err
}

func (s *ConnectionStore) userIDs(tx *bolt.Tx, providerID, providerUserID string, seen map[string]bool, out []string) []string {
	prefix := []byte(providerID + sep + providerUserID + sep)
	c := tx.Bucket(accountsBucket).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		u := string(k[len(prefix):])
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

func (s *ConnectionStore) FindUserIDs(ctx context.Context, providerID, providerUserID string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		out = s.userIDs(tx, providerID, providerUserID, map[string]bool{}, nil)
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (s *ConnectionStore) FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		seen := map[string]bool{}
		for _, id := range providerUserIDs {
			out = s.userIDs(tx, providerID, id, seen, out)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func put(tx *bolt.Tx, r record) error {
	v, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return tx.Bucket(connectionsBucket).Put(connKey(r.UserID, r.ProviderID, r.ProviderUserID), v)
}

func (s *ConnectionStore) Insert(ctx context.Context, rec repository.ConnectionRecord) (int, error) {
	var rank int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(connectionsBucket)
		if b.Get(connKey(rec.UserID, rec.ProviderID, rec.ProviderUserID)) != nil {
			return repository.ErrDuplicateConnection
		}
		existing, err := s.collect(tx, []byte(rec.UserID+sep+rec.ProviderID+sep), nil)
		if err != nil {
			return err
		}
		rank = 1
		for _, e := range existing {
			if e.Rank >= rank {
				rank = e.Rank + 1
			}
		}

		now := time.Now().UTC()
		r := toRecord(rec)
		r.Rank = rank
		r.CreatedAt, r.UpdatedAt = now, now
		if err := put(tx, r); err != nil {
			return err
		}
		return tx.Bucket(accountsBucket).Put(accountKey(rec.ProviderID, rec.ProviderUserID, rec.UserID), []byte{})
	})
	if err != nil {
		return 0, err
	}
	return rank, nil
}

func (s *ConnectionStore) Update(ctx context.Context, rec repository.ConnectionRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket(connectionsBucket).Get(connKey(rec.UserID, rec.ProviderID, rec.ProviderUserID))
		if v == nil {
			return repository.ErrNotFound
		}
		var cur record
		if err := json.Unmarshal(v, &cur); err != nil {
			return err
		}
		next := toRecord(rec)
		next.Rank = cur.Rank
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = time.Now().UTC()
		return put(tx, next)
	})
}

func (s *ConnectionStore) DeleteProvider(ctx context.Context, userID, providerID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		existing, err := s.collect(tx, []byte(userID+sep+providerID+sep), nil)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if err := remove(tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func remove(tx *bolt.Tx, r repository.ConnectionRecord) error {
	if err := tx.Bucket(connectionsBucket).Delete(connKey(r.UserID, r.ProviderID, r.ProviderUserID)); err != nil {
		return err
	}
	return tx.Bucket(accountsBucket).Delete(accountKey(r.ProviderID, r.ProviderUserID, r.UserID))
}

func (s *ConnectionStore) Delete(ctx context.Context, userID, providerID, providerUserID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		cur, err := s.collect(tx, []byte(userID+sep+providerID+sep), nil)
		if err != nil {
			return err
		}
		rank := 1
		for _, e := range cur {
			if e.ProviderUserID == providerUserID {
				if err := remove(tx, e); err != nil {
					return err
				}
				continue
			}
			if e.Rank != rank {
				e.Rank = rank
				if err := put(tx, toRecord(e)); err != nil {
					return err
				}
			}
			rank++
		}
		return nil
	})
}
