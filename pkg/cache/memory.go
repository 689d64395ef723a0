package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time // zero: no hard expiry
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && !now.Before(m.expireAt)
}

// MemoryStore implements Store in process memory with LRU eviction. Values
// are held as JSON envelopes so reads behave like the Redis store.
type MemoryStore struct {
	data          map[string]*memoryItem
	access        map[string]time.Time
	locks         map[string]time.Time
	mutex         sync.Mutex
	maxSize       int
	now           func() time.Time
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		Clock:           time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	ms := &MemoryStore{
		data:    make(map[string]*memoryItem),
		access:  make(map[string]time.Time),
		locks:   make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		now:     cfg.Clock,
		done:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		ms.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		go ms.cleanupExpired()
	}
	return ms
}

func (ms *MemoryStore) Get(_ context.Context, key string, dest interface{}) (Meta, error) {
	ms.mutex.Lock()
	item, exists := ms.data[key]
	if !exists || item.expired(ms.now()) {
		if exists {
			ms.remove(key)
		}
		ms.mutex.Unlock()
		return Meta{}, ErrCacheMiss
	}
	ms.access[key] = ms.now()
	data := item.data
	ms.mutex.Unlock()

	return decode(data, dest)
}

func (ms *MemoryStore) Put(_ context.Context, key string, value interface{}, meta Meta, expireAt *time.Time) error {
	data, err := encode(value, meta, expireAt)
	if err != nil {
		return err
	}
	return ms.putRaw(key, data, expireAt)
}

func (ms *MemoryStore) putRaw(key string, data []byte, expireAt *time.Time) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	now := ms.now()
	if expireAt != nil && !now.Before(*expireAt) {
		ms.remove(key)
		return nil
	}
	if _, exists := ms.data[key]; !exists && len(ms.data) >= ms.maxSize {
		ms.evictLRU()
	}

	item := &memoryItem{data: data}
	if expireAt != nil {
		item.expireAt = *expireAt
	}
	ms.data[key] = item
	ms.access[key] = now
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	for _, key := range keys {
		ms.remove(key)
	}
	return nil
}

func (ms *MemoryStore) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	now := ms.now()
	if until, ok := ms.locks[key]; ok && now.Before(until) {
		return false, nil
	}
	ms.locks[key] = now.Add(ttl)
	return true, nil
}

func (ms *MemoryStore) Unlock(_ context.Context, key string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	delete(ms.locks, key)
	return nil
}

// Len returns the number of live entries.
func (ms *MemoryStore) Len() int {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	now := ms.now()
	n := 0
	for _, item := range ms.data {
		if !item.expired(now) {
			n++
		}
	}
	return n
}

func (ms *MemoryStore) remove(key string) {
	delete(ms.data, key)
	delete(ms.access, key)
}

func (ms *MemoryStore) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range ms.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		ms.remove(oldestKey)
	}
}

func (ms *MemoryStore) sweep() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	now := ms.now()
	for key, item := range ms.data {
		if item.expired(now) {
			ms.remove(key)
		}
	}
	for key, until := range ms.locks {
		if !now.Before(until) {
			delete(ms.locks, key)
		}
	}
}

func (ms *MemoryStore) cleanupExpired() {
	for {
		select {
		case <-ms.cleanupTicker.C:
			ms.sweep()
		case <-ms.done:
			return
		}
	}
}

// Close stops the cleanup loop.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		if ms.cleanupTicker != nil {
			ms.cleanupTicker.Stop()
		}
		close(ms.done)
	})
	return nil
}
