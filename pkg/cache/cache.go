package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	ErrLocked    = errors.New("cache: key locked")
)

// Meta is stored alongside every value.
type Meta struct {
	FetchTime time.Time         `json:"fetch_time"`
	Tags      map[string]string `json:"tags,omitempty"`
	// ExpireAt is the hard expiry the value was stored with. Set by the store.
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

// Store is a key/value store with optional hard expiry. Freshness decisions
// are made by callers; a store only drops a value once its expireAt passes.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (Meta, error)
	// Put stores value under key. A nil expireAt keeps the value until it is
	// overwritten or deleted.
	Put(ctx context.Context, key string, value interface{}, meta Meta, expireAt *time.Time) error
	Delete(ctx context.Context, keys ...string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

type envelope struct {
	Meta  Meta            `json:"meta"`
	Value json.RawMessage `json:"value"`
}

func encode(value interface{}, meta Meta, expireAt *time.Time) ([]byte, error) {
	meta.ExpireAt = expireAt
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return json.Marshal(envelope{Meta: meta, Value: raw})
}

func decode(data []byte, dest interface{}) (Meta, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Meta{}, fmt.Errorf("decode envelope: %w", err)
	}
	if dest != nil {
		if err := json.Unmarshal(env.Value, dest); err != nil {
			return Meta{}, fmt.Errorf("decode value: %w", err)
		}
	}
	return env.Meta, nil
}

// GetTyped reads key into a new T.
func GetTyped[T any](ctx context.Context, s Store, key string) (T, Meta, error) {
	var v T
	meta, err := s.Get(ctx, key, &v)
	return v, meta, err
}

// WithLock runs fn while holding the store lock on key.
func WithLock(ctx context.Context, s Store, key string, ttl time.Duration, fn func() error) error {
	ok, err := s.TryLock(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, key)
	}
	defer func() { _ = s.Unlock(ctx, key) }()
	return fn()
}
