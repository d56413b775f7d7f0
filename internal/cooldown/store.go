package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultKeyPrefix namespaces Redis keys.
const DefaultKeyPrefix = "ysyunhei:cooldown:"

// ErrUnknownBackend is returned by NewStore for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cooldown backend")

// Store claims keys for a fixed window.
type Store interface {
	// Acquire claims key for window. When the key is already held it returns
	// ok=false and the time until it frees up.
	Acquire(ctx context.Context, key string, window time.Duration) (remaining time.Duration, ok bool, err error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewStore builds the configured backend. The Redis backend pings once.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedisStore(rdb, DefaultKeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

const janitorInterval = time.Minute

// MemoryStore keeps keys in process memory.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore starts a store whose janitor sweeps expired keys every minute.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, janitorInterval)}
}

// Acquire implements Store.
func (s *MemoryStore) Acquire(_ context.Context, key string, window time.Duration) (time.Duration, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.cache.Add(key, struct{}{}, window); err == nil {
			return 0, true, nil
		}
		if _, exp, found := s.cache.GetWithExpiration(key); found {
			return max(time.Until(exp), 0), false, nil
		}
		// Expired between Add and Get; claim again.
	}
	return 0, true, nil
}

// Len reports how many keys are currently held, expired ones excluded.
func (s *MemoryStore) Len() int {
	n := 0
	for _, item := range s.cache.Items() {
		if !item.Expired() {
			n++
		}
	}
	return n
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}

// RedisStore shares keys between processes.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Acquire implements Store.
func (s *RedisStore) Acquire(ctx context.Context, key string, window time.Duration) (time.Duration, bool, error) {
	k := s.prefix + key

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, k, 1, window).Result()
		if err != nil {
			return 0, false, fmt.Errorf("claiming %s: %w", k, err)
		}
		if ok {
			return 0, true, nil
		}

		ttl, err := s.rdb.PTTL(ctx, k).Result()
		if err != nil {
			return 0, false, fmt.Errorf("reading ttl of %s: %w", k, err)
		}
		switch {
		case ttl > 0:
			return ttl, false, nil
		case ttl == -1:
			// Held without expiry; report the full window.
			return window, false, nil
		}
		// Gone since SETNX; claim again.
	}
	return 0, true, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
