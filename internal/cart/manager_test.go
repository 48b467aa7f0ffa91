package cart

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_PersistenceSurvivesReload(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryPersister()

	m := NewManager(persister, zap.NewNop())
	_, err := m.Mutate(ctx, "session-a", func(s *Store) error {
		s.AddItem(chene)
		s.AddItem(chene)
		s.AddItem(hetre)
		return nil
	})
	require.NoError(t, err)

	// A fresh manager over the same persisted state behaves like a page reload.
	reloaded, err := NewManager(persister, zap.NewNop()).Get(ctx, "session-a")
	require.NoError(t, err)

	items := reloaded.Items()
	require.Len(t, items, 2)
	assert.Equal(t, chene.ID, items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, chene.Price, items[0].Price)
	assert.Equal(t, hetre.ID, items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, int64(1), reloaded.Version())
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryPersister(), zap.NewNop())

	_, err := m.Mutate(ctx, "a", func(s *Store) error { s.AddItem(chene); return nil })
	require.NoError(t, err)

	other, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestManager_ConcurrentTabsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryPersister(), zap.NewNop())
	m.maxAttempts = 1000

	const tabs = 20
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Mutate(ctx, "shared", func(s *Store) error {
				s.AddItem(chene)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, tabs, st.TotalItems())
	assert.Equal(t, int64(tabs), st.Version())
}

type conflictingPersister struct {
	*MemoryPersister
	conflicts int
}

func (c *conflictingPersister) Save(ctx context.Context, key string, snap Snapshot, expected int64) error {
	if c.conflicts > 0 {
		c.conflicts--
		// Simulate another tab writing in between.
		if err := c.MemoryPersister.Save(ctx, key, Snapshot{Items: []Item{{ID: 9, Name: "autre onglet", Price: 1, Quantity: 1}}}, expected); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return c.MemoryPersister.Save(ctx, key, snap, expected)
}

func TestManager_RetriesOnConflictAndReappliesMutation(t *testing.T) {
	ctx := context.Background()
	p := &conflictingPersister{MemoryPersister: NewMemoryPersister(), conflicts: 1}
	m := NewManager(p, zap.NewNop())

	calls := 0
	st, err := m.Mutate(ctx, "s", func(s *Store) error {
		calls++
		s.AddItem(chene)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, st.Len(), "the other tab's line is kept")
	assert.Equal(t, int64(2), st.Version())
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	p := &conflictingPersister{MemoryPersister: NewMemoryPersister(), conflicts: 100}
	m := NewManager(p, zap.NewNop())

	_, err := m.Mutate(ctx, "s", func(s *Store) error { s.AddItem(chene); return nil })
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestManager_MutationErrorAbortsWithoutSaving(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryPersister(), zap.NewNop())
	boom := errors.New("boom")

	_, err := m.Mutate(ctx, "s", func(s *Store) error {
		s.AddItem(chene)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, err := m.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestManager_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryPersister(), zap.NewNop())

	_, err := m.Mutate(ctx, "s", func(s *Store) error { s.AddItem(chene); return nil })
	require.NoError(t, err)

	require.NoError(t, m.Clear(ctx, "s"))

	st, err := m.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, int64(2), st.Version())
}

func TestMemoryPersister_StaleSaveConflicts(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()

	require.NoError(t, p.Save(ctx, "k", Snapshot{Items: []Item{{ID: 1, Quantity: 1}}}, 0))
	assert.ErrorIs(t, p.Save(ctx, "k", Snapshot{}, 0), ErrVersionConflict)

	snap, err := p.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
}

// The redis adapter needs a live server; REDIS_TEST_ADDR points at it.
func TestRedisPersister_CompareAndSwap(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	p := NewRedisPersister(client, time.Minute)
	key := "test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, p.key(key))

	snap, err := p.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Version)

	require.NoError(t, p.Save(ctx, key, Snapshot{Items: []Item{{ID: 1, Name: "Chêne", Price: 89.9, Quantity: 2}}}, 0))
	assert.ErrorIs(t, p.Save(ctx, key, Snapshot{}, 0), ErrVersionConflict)

	snap, err = p.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
}
