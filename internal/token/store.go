package token

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"authkit/internal/repository"
)

const defaultStoreTTL = 24 * time.Hour

// RefreshStore guarda los jti de refresh tokens vigentes y permite revocarlos.
type RefreshStore interface {
	Store(ctx context.Context, jti, userID string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
}

type memoryRefreshStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemoryRefreshStore() RefreshStore {
	return &memoryRefreshStore{
		items: make(map[string]time.Time),
	}
}

func (s *memoryRefreshStore) Store(_ context.Context, jti, _ string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultStoreTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[jti] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *memoryRefreshStore) Exists(_ context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

func (s *memoryRefreshStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, strings.TrimSpace(jti))
	return nil
}

// redisKV es el subconjunto de *redis.Client que usa el store.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRefreshStore struct {
	client  redisKV
	prefix  string
	timeout time.Duration
}

// NewRedisRefreshStore returns nil for a nil client so callers can fall back
// to the memory store.
func NewRedisRefreshStore(client *redis.Client) RefreshStore {
	if client == nil {
		return nil
	}
	return &redisRefreshStore{
		client:  client,
		prefix:  "auth:refresh:",
		timeout: 500 * time.Millisecond,
	}
}

func (s *redisRefreshStore) Store(ctx context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultStoreTTL
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+jti, userID, ttl).Err(); err != nil {
		return repository.NewError(repository.CodeConnectionFailed, "store refresh token", err)
	}
	return nil
}

func (s *redisRefreshStore) Exists(ctx context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, repository.NewError(repository.CodeConnectionFailed, "lookup refresh token", err)
	}
	return n > 0, nil
}

func (s *redisRefreshStore) Revoke(ctx context.Context, jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+jti).Err(); err != nil {
		return repository.NewError(repository.CodeConnectionFailed, "revoke refresh token", err)
	}
	return nil
}

func (s *redisRefreshStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}
