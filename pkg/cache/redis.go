package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store on Redis. Values are JSON envelopes; hard
// expiry maps to PEXPIREAT.
type RedisStore struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisStore connects to Redis and pings it.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		Prefix:       "quotecache",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := cfg.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		tokens: make(map[string]string),
	}, nil
}

// Client returns the underlying redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (Meta, error) {
	data, err := s.client.Get(ctx, s.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Meta{}, ErrCacheMiss
		}
		return Meta{}, err
	}
	return decode(data, dest)
}

func (s *RedisStore) Put(ctx context.Context, key string, value interface{}, meta Meta, expireAt *time.Time) error {
	data, err := encode(value, meta, expireAt)
	if err != nil {
		return err
	}
	key = s.wrapKey(key)

	if expireAt != nil && !time.Now().Before(*expireAt) {
		return s.client.Unlink(ctx, key).Err()
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	if expireAt != nil {
		pipe.PExpireAt(ctx, key, *expireAt)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Unlink(ctx, s.wrapKeys(keys...)...).Err()
}

// TryLock takes the lock with a fresh token. Unlock releases it only while
// the token still matches, so a lock that expired and was taken by a peer
// is left alone.
func (s *RedisStore) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.lockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	s.mu.Lock()
	s.tokens[key] = token
	s.mu.Unlock()
	return true, nil
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	s.mu.Lock()
	token, ok := s.tokens[key]
	delete(s.tokens, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return unlockScript.Run(ctx, s.client, []string{s.lockKey(key)}, token).Err()
}

// TTL returns the remaining hard expiry of key, or a negative duration when
// it has none.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.PTTL(ctx, s.wrapKey(key)).Result()
}

func (s *RedisStore) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) lockKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", s.prefix, key)
}

func (s *RedisStore) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = s.wrapKey(key)
	}
	return wrapped
}
