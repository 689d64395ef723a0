package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// LayeredStore is a two-level store: a MemoryStore in front of any backing
// Store, usually Redis. Writes go through to both levels.
type LayeredStore struct {
	mem     *MemoryStore
	backing Store
}

// NewLayeredStore puts a memory L1 in front of backing.
func NewLayeredStore(backing Store, opts ...LayeredOption) *LayeredStore {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		Clock:         time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredStore{
		mem:     NewMemoryStore(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryClock(cfg.Clock)),
		backing: backing,
	}
}

func (ls *LayeredStore) Put(ctx context.Context, key string, value interface{}, meta Meta, expireAt *time.Time) error {
	// Write-through: backing first, then memory
	if err := ls.backing.Put(ctx, key, value, meta, expireAt); err != nil {
		return err
	}
	_ = ls.mem.Put(ctx, key, value, meta, expireAt)
	return nil
}

func (ls *LayeredStore) Get(ctx context.Context, key string, dest interface{}) (Meta, error) {
	// L1: Try memory first
	if meta, err := ls.mem.Get(ctx, key, dest); err == nil {
		return meta, nil
	}

	// L2: backing store, decoded once into raw JSON so L1 can be filled
	var raw json.RawMessage
	meta, err := ls.backing.Get(ctx, key, &raw)
	if err != nil {
		return Meta{}, err
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return Meta{}, err
		}
	}

	_ = ls.mem.Put(ctx, key, raw, meta, meta.ExpireAt)
	return meta, nil
}

func (ls *LayeredStore) Delete(ctx context.Context, keys ...string) error {
	_ = ls.mem.Delete(ctx, keys...)
	return ls.backing.Delete(ctx, keys...)
}

// Evict drops keys from the memory level only. Used when another instance
// reports a write the backing store already holds.
func (ls *LayeredStore) Evict(ctx context.Context, keys ...string) error {
	return ls.mem.Delete(ctx, keys...)
}

func (ls *LayeredStore) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return ls.backing.TryLock(ctx, key, ttl)
}

func (ls *LayeredStore) Unlock(ctx context.Context, key string) error {
	return ls.backing.Unlock(ctx, key)
}

// Close closes both levels.
func (ls *LayeredStore) Close() error {
	return errors.Join(ls.mem.Close(), ls.backing.Close())
}
