// Package session 缓存操作员的 bearer 凭证，外呼远端函数时带上
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 全局只缓存一个凭证
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore ttl <= 0 表示不过期，直到 Clear
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ttl > 0 && !m.now().Before(m.expires) {
		return "", nil
	}
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expires = m.now().Add(m.ttl)
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "backoffice:session:bearer"
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *RedisStore) Set(ctx context.Context, token string) error {
	return r.rdb.Set(ctx, r.key, token, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

type ctxKey struct{}

// WithBearer 请求自带的凭证，优先于缓存
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

// Source 外呼时解析用哪个凭证
type Source struct {
	Store Store
}

// Bearer 没有可用凭证时返回 false
func (s Source) Bearer(ctx context.Context) (string, bool) {
	if tok, ok := ctx.Value(ctxKey{}).(string); ok && tok != "" {
		return tok, true
	}
	if s.Store == nil {
		return "", false
	}
	tok, err := s.Store.Get(ctx)
	if err != nil || tok == "" {
		return "", false
	}
	return tok, true
}
