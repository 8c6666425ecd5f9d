package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/bookmd/internal/apperr"
)

var ErrLockNotAcquired = apperr.Conflict("slot_being_booked", "another booking for this doctor is in progress")

// Locker guards a critical section by key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// DoctorLockKey serializes bookings against one doctor's calendar.
func DoctorLockKey(doctorID uuid.UUID) string {
	return "lock:doctor:" + doctorID.String()
}

// LockConfig bounds how long a lock is held and how long callers wait for it.
type LockConfig struct {
	TTL          time.Duration
	Wait         time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:          5 * time.Second,
		Wait:         2 * time.Second,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

// acquire retries try with exponential backoff until it succeeds, fails or
// the wait budget runs out.
func acquire(ctx context.Context, cfg LockConfig, try func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(cfg.Wait)
	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Add(delay).Before(deadline) {
			return ErrLockNotAcquired
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

type redisLocker struct {
	client redis.UniversalClient
	cfg    LockConfig
}

// NewRedisLocker creates a locker backed by SET NX keys with a random token.
func NewRedisLocker(client redis.UniversalClient, cfg LockConfig) Locker {
	return &redisLocker{
		client: client,
		cfg:    cfg,
	}
}

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	err := acquire(ctx, l.cfg, func(ctx context.Context) (bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return false, apperr.Persistence("acquire lock", err)
		}
		return ok, nil
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.cfg.TTL)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
