package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

type key struct {
	userID, providerID, providerUserID string
}

// ConnectionStore guarda los registros en un map protegido por mutex.
type ConnectionStore struct {
	mu   sync.RWMutex
	rows map[key]repository.ConnectionRecord
	now  func() time.Time
}

var _ repository.ConnectionStore = (*ConnectionStore)(nil)

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		rows: make(map[key]repository.ConnectionRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// filter debe llamarse con el lock tomado.
func (s *ConnectionStore) filter(keep func(repository.ConnectionRecord) bool) []repository.ConnectionRecord {
	var out []repository.ConnectionRecord
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID < out[j].ProviderID
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

func (s *ConnectionStore) FindByUser(ctx context.Context, userID string) ([]repository.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r repository.ConnectionRecord) bool {
		return r.UserID == userID
	}), nil
}

func (s *ConnectionStore) FindByUserProvider(ctx context.Context, userID, providerID string) ([]repository.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r repository.ConnectionRecord) bool {
		return r.UserID == userID && r.ProviderID == providerID
	}), nil
}

func (s *ConnectionStore) FindByUserProviderUsers(ctx context.Context, userID string, providerUserIDs map[string][]string) ([]repository.ConnectionRecord, error) {
	want := make(map[[2]string]bool)
	for p, ids := range providerUserIDs {
		for _, id := range ids {
			want[[2]string{p, id}] = true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r repository.ConnectionRecord) bool {
		return r.UserID == userID && want[[2]string{r.ProviderID, r.ProviderUserID}]
	}), nil
}

func (s *ConnectionStore) Get(ctx context.Context, userID, providerID, providerUserID string) (*repository.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[key{userID, providerID, providerUserID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *ConnectionStore) userIDs(match func(repository.ConnectionRecord) bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.rows {
		if match(r) && !seen[r.UserID] {
			seen[r.UserID] = true
			out = append(out, r.UserID)
		}
	}
	sort.Strings(out)
	return out
}

func (s *ConnectionStore) FindUserIDs(ctx context.Context, providerID, providerUserID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userIDs(func(r repository.ConnectionRecord) bool {
		return r.ProviderID == providerID && r.ProviderUserID == providerUserID
	}), nil
}

func (s *ConnectionStore) FindUserIDsConnectedTo(ctx context.Context, providerID string, providerUserIDs []string) ([]string, error) {
	ids := make(map[string]bool, len(providerUserIDs))
	for _, id := range providerUserIDs {
		ids[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userIDs(func(r repository.ConnectionRecord) bool {
		return r.ProviderID == providerID && ids[r.ProviderUserID]
	}), nil
}

func (s *ConnectionStore) Insert(ctx context.Context, rec repository.ConnectionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.UserID, rec.ProviderID, rec.ProviderUserID}
	if _, exists := s.rows[k]; exists {
		return 0, repository.ErrDuplicateConnection
	}
	rank := 1
	for _, r := range s.rows {
		if r.UserID == rec.UserID && r.ProviderID == rec.ProviderID && r.Rank >= rank {
			rank = r.Rank + 1
		}
	}
	now := s.now()
	rec.Rank = rank
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.rows[k] = rec
	return rank, nil
}

func (s *ConnectionStore) Update(ctx context.Context, rec repository.ConnectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.UserID, rec.ProviderID, rec.ProviderUserID}
	cur, ok := s.rows[k]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Rank = cur.Rank
	rec.CreatedAt = cur.CreatedAt
	rec.UpdatedAt = s.now()
	s.rows[k] = rec
	return nil
}

func (s *ConnectionStore) DeleteProvider(ctx context.Context, userID, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.userID == userID && k.providerID == providerID {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *ConnectionStore) Delete(ctx context.Context, userID, providerID, providerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, providerID, providerUserID}
	if _, ok := s.rows[k]; !ok {
		return nil
	}
	delete(s.rows, k)

	rest := s.filter(func(r repository.ConnectionRecord) bool {
		return r.UserID == userID && r.ProviderID == providerID
	})
	for i, r := range rest {
		r.Rank = i + 1
		s.rows[key{r.UserID, r.ProviderID, r.ProviderUserID}] = r
	}
	return nil
}
