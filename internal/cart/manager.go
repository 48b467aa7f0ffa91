package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const defaultMaxAttempts = 5

// Manager is the application-wide entry point to carts. Every mutation is a
// load/apply/compare-and-swap cycle, so concurrent requests for the same session
// (several tabs) are retried instead of overwriting each other.
type Manager struct {
	persister   Persister
	logger      *zap.Logger
	maxAttempts int
}

func NewManager(persister Persister, logger *zap.Logger) *Manager {
	return &Manager{
		persister:   persister,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
	}
}

func (m *Manager) Get(ctx context.Context, key string) (*Store, error) {
	snap, err := m.persister.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}

// Mutate applies fn to the current cart and persists the result. fn may run more
// than once and must only touch the store it is given.
func (m *Manager) Mutate(ctx context.Context, key string, fn func(*Store) error) (*Store, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		snap, err := m.persister.Load(ctx, key)
		if err != nil {
			return nil, err
		}

		st := FromSnapshot(snap)
		if err := fn(st); err != nil {
			return nil, err
		}

		err = m.persister.Save(ctx, key, st.Snapshot(), snap.Version)
		if err == nil {
			st.version = snap.Version + 1
			return st, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}

		m.logger.Debug("cart version conflict, retrying",
			zap.String("session", key),
			zap.Int64("version", snap.Version),
			zap.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("saving cart after %d attempts: %w", m.maxAttempts, ErrVersionConflict)
}

func (m *Manager) Clear(ctx context.Context, key string) error {
	_, err := m.Mutate(ctx, key, func(s *Store) error {
		s.Clear()
		return nil
	})
	return err
}
