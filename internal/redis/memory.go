package redisclient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// The in-process variants serve single-instance deployments without Redis.

type memoryLocker struct {
	cache *cache.Cache
	cfg   LockConfig
	mu    sync.Mutex
}

func NewMemoryLocker(cfg LockConfig) Locker {
	return &memoryLocker{
		cache: cache.New(cfg.TTL, time.Minute),
		cfg:   cfg,
	}
}

func (l *memoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	err := acquire(ctx, l.cfg, func(context.Context) (bool, error) {
		return l.cache.Add(key, token, l.cfg.TTL) == nil, nil
	})
	if err != nil {
		return err
	}

	defer func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if v, ok := l.cache.Get(key); ok && v == token {
			l.cache.Delete(key)
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.cfg.TTL)
	defer cancel()

	return fn(ctxWithTimeout)
}

type memoryIdempotency struct {
	cache *cache.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

func NewMemoryIdempotency(ttl time.Duration) IdempotencyStore {
	return &memoryIdempotency{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (s *memoryIdempotency) Reserve(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(key); ok {
		if v == pendingMarker {
			return "", ErrRequestInFlight
		}
		return v.(string), nil
	}
	s.cache.Set(key, pendingMarker, s.ttl)
	return "", nil
}

func (s *memoryIdempotency) Complete(ctx context.Context, key, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, result, s.ttl)
	return nil
}

func (s *memoryIdempotency) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(key); ok && v == pendingMarker {
		s.cache.Delete(key)
	}
	return nil
}
