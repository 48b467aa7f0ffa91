package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps carts in a server-side session store. Compare-and-swap uses
// WATCH/MULTI so two tabs saving from the same version cannot both win.
type RedisPersister struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisPersister(client redis.UniversalClient, ttl time.Duration) *RedisPersister {
	return &RedisPersister{
		client: client,
		prefix: "cart:",
		ttl:    ttl,
	}
}

func (p *RedisPersister) key(session string) string {
	return p.prefix + session
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding cart snapshot: %w", err)
	}
	return snap, nil
}

func (p *RedisPersister) Load(ctx context.Context, key string) (Snapshot, error) {
	data, err := p.client.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading cart: %w", err)
	}
	return decodeSnapshot(data)
}

func (p *RedisPersister) Save(ctx context.Context, key string, snap Snapshot, expected int64) error {
	k := p.key(key)

	txf := func(tx *redis.Tx) error {
		current := Snapshot{}
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("reading cart version: %w", err)
		default:
			if current, err = decodeSnapshot(data); err != nil {
				return err
			}
		}

		if current.Version != expected {
			return ErrVersionConflict
		}

		snap.Version = expected + 1
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encoding cart snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, p.ttl)
			return nil
		})
		return err
	}

	err := p.client.Watch(ctx, txf, k)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}
