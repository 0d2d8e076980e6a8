// Package storetest contiene la suite de conformidad que todo engine de
// repository.ConnectionStore debe pasar.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

// Record arma un registro mínimo válido.
func Record(userID, providerID, providerUserID string) repository.ConnectionRecord {
	return repository.ConnectionRecord{
		UserID:         userID,
		ProviderID:     providerID,
		ProviderUserID: providerUserID,
		DisplayName:    "@" + providerUserID,
		ProfileURL:     "https://provider.test/" + providerUserID,
		AccessToken:    "token-" + providerUserID,
	}
}

// Run ejecuta la suite. newStore debe retornar un store vacío en cada
// llamada; los engines compartidos deben usar user ids únicos por test.
func Run(t *testing.T, newStore func(t *testing.T) repository.ConnectionStore) {
	t.Run("InsertAssignsIncreasingRanks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r1, err := s.Insert(ctx, Record("u1", "facebook", "9"))
		require.NoError(t, err)
		r2, err := s.Insert(ctx, Record("u1", "facebook", "10"))
		require.NoError(t, err)
		r3, err := s.Insert(ctx, Record("u1", "twitter", "1"))
		require.NoError(t, err)

		assert.Equal(t, 1, r1)
		assert.Equal(t, 2, r2)
		assert.Equal(t, 1, r3)

		recs, err := s.FindByUserProvider(ctx, "u1", "facebook")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "9", recs[0].ProviderUserID)
		assert.Equal(t, "10", recs[1].ProviderUserID)
	})

	t.Run("InsertDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, Record("u1", "facebook", "9"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, Record("u1", "facebook", "9"))
		require.Error(t, err)
		assert.True(t, repository.IsDuplicateConnection(err))

		// otro usuario puede conectar la misma cuenta
		_, err = s.Insert(ctx, Record("u2", "facebook", "9"))
		require.NoError(t, err)
	})

	t.Run("ConcurrentInsertsGetDistinctRanks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		ranks := make([]int, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ranks[i], errs[i] = s.Insert(ctx, Record("u1", "github", string(rune('a'+i))))
			}(i)
		}
		wg.Wait()

		seen := make(map[int]bool)
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.False(t, seen[ranks[i]], "rank %d assigned twice", ranks[i])
			seen[ranks[i]] = true
		}
		for r := 1; r <= n; r++ {
			assert.True(t, seen[r], "missing rank %d", r)
		}
	})

	t.Run("ConcurrentSameKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 16
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.Insert(ctx, Record("u1", "github", "octocat"))
			}(i)
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case repository.IsDuplicateConnection(err):
				dup++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, dup)

		recs, err := s.FindByUserProvider(ctx, "u1", "github")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, 1, recs[0].Rank)
	})

	t.Run("FindByUserOrdering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, r := range []repository.ConnectionRecord{
			Record("u1", "twitter", "t1"),
			Record("u1", "facebook", "f1"),
			Record("u1", "facebook", "f2"),
			Record("u2", "facebook", "f3"),
		} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		recs, err := s.FindByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []string{"f1", "f2", "t1"}, []string{
			recs[0].ProviderUserID, recs[1].ProviderUserID, recs[2].ProviderUserID,
		})

		recs, err = s.FindByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("FindByUserProviderUsers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, r := range []repository.ConnectionRecord{
			Record("u1", "facebook", "f1"),
			Record("u1", "facebook", "f2"),
			Record("u1", "twitter", "t1"),
			Record("u2", "twitter", "t2"),
		} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		recs, err := s.FindByUserProviderUsers(ctx, "u1", map[string][]string{
			"facebook": {"f2", "missing"},
			"twitter":  {"t1", "t2"},
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "f2", recs[0].ProviderUserID)
		assert.Equal(t, "t1", recs[1].ProviderUserID)
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := Record("u1", "facebook", "9")
		in.ImageURL = "https://provider.test/9/picture"
		in.Secret = "sec"
		in.RefreshToken = "refresh"
		in.ExpireTime = 1700000000000
		_, err := s.Insert(ctx, in)
		require.NoError(t, err)

		got, err := s.Get(ctx, "u1", "facebook", "9")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Rank)
		assert.Equal(t, in.DisplayName, got.DisplayName)
		assert.Equal(t, in.ProfileURL, got.ProfileURL)
		assert.Equal(t, in.ImageURL, got.ImageURL)
		assert.Equal(t, in.AccessToken, got.AccessToken)
		assert.Equal(t, in.Secret, got.Secret)
		assert.Equal(t, in.RefreshToken, got.RefreshToken)
		assert.Equal(t, in.ExpireTime, got.ExpireTime)
		assert.False(t, got.CreatedAt.IsZero())

		_, err = s.Get(ctx, "u1", "facebook", "404")
		assert.True(t, repository.IsNotFound(err))
	})

	t.Run("OptionalFieldsStayEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := repository.ConnectionRecord{UserID: "u1", ProviderID: "twitter", ProviderUserID: "1", AccessToken: "a"}
		_, err := s.Insert(ctx, in)
		require.NoError(t, err)

		got, err := s.Get(ctx, "u1", "twitter", "1")
		require.NoError(t, err)
		assert.Empty(t, got.DisplayName)
		assert.Empty(t, got.Secret)
		assert.Empty(t, got.RefreshToken)
		assert.Zero(t, got.ExpireTime)
	})

	t.Run("UpdateKeepsRank", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, Record("u1", "facebook", "9"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, Record("u1", "facebook", "10"))
		require.NoError(t, err)

		upd := Record("u1", "facebook", "10")
		upd.AccessToken = "rotated"
		upd.RefreshToken = "r2"
		upd.DisplayName = "renamed"
		require.NoError(t, s.Update(ctx, upd))

		got, err := s.Get(ctx, "u1", "facebook", "10")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Rank)
		assert.Equal(t, "rotated", got.AccessToken)
		assert.Equal(t, "r2", got.RefreshToken)
		assert.Equal(t, "renamed", got.DisplayName)

		err = s.Update(ctx, Record("u1", "facebook", "404"))
		assert.True(t, repository.IsNotFound(err))
	})

	t.Run("DeleteResequences", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := s.Insert(ctx, Record("u1", "facebook", id))
			require.NoError(t, err)
		}
		require.NoError(t, s.Delete(ctx, "u1", "facebook", "a"))

		recs, err := s.FindByUserProvider(ctx, "u1", "facebook")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "b", recs[0].ProviderUserID)
		assert.Equal(t, 1, recs[0].Rank)
		assert.Equal(t, "c", recs[1].ProviderUserID)
		assert.Equal(t, 2, recs[1].Rank)

		// idempotente
		require.NoError(t, s.Delete(ctx, "u1", "facebook", "a"))

		rank, err := s.Insert(ctx, Record("u1", "facebook", "d"))
		require.NoError(t, err)
		assert.Equal(t, 3, rank)
	})

	t.Run("DeleteProvider", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, r := range []repository.ConnectionRecord{
			Record("u1", "facebook", "f1"),
			Record("u1", "facebook", "f2"),
			Record("u1", "twitter", "t1"),
		} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}
		require.NoError(t, s.DeleteProvider(ctx, "u1", "facebook"))
		require.NoError(t, s.DeleteProvider(ctx, "u1", "facebook"))

		recs, err := s.FindByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "twitter", recs[0].ProviderID)

		ids, err := s.FindUserIDs(ctx, "facebook", "f1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("ReverseLookups", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, r := range []repository.ConnectionRecord{
			Record("u1", "facebook", "f1"),
			Record("u2", "facebook", "f1"),
			Record("u3", "facebook", "f2"),
			Record("u4", "twitter", "f1"),
		} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		ids, err := s.FindUserIDs(ctx, "facebook", "f1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

		ids, err = s.FindUserIDsConnectedTo(ctx, "facebook", []string{"f1", "f2", "f9"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, ids)

		ids, err = s.FindUserIDs(ctx, "facebook", "f9")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
