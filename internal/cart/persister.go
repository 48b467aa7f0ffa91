package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrVersionConflict is returned by Save when the stored snapshot moved on since
// it was loaded.
var ErrVersionConflict = errors.New("cart version conflict")

// Persister stores cart snapshots by session key. Load returns an empty snapshot
// with version 0 for unknown keys. Save writes snap with Version expected+1 only
// if the stored version still equals expected.
type Persister interface {
	Load(ctx context.Context, key string) (Snapshot, error)
	Save(ctx context.Context, key string, snap Snapshot, expected int64) error
}

type MemoryPersister struct {
	mu    sync.Mutex
	carts map[string]Snapshot
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{carts: make(map[string]Snapshot)}
}

func (m *MemoryPersister) Load(_ context.Context, key string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.carts[key]
	if !ok {
		return Snapshot{}, nil
	}
	items := make([]Item, len(snap.Items))
	copy(items, snap.Items)
	return Snapshot{Items: items, Version: snap.Version}, nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, snap Snapshot, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.carts[key].Version != expected {
		return ErrVersionConflict
	}
	items := make([]Item, len(snap.Items))
	copy(items, snap.Items)
	m.carts[key] = Snapshot{Items: items, Version: expected + 1}
	return nil
}
