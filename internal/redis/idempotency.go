package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/bookmd/internal/apperr"
)

var ErrRequestInFlight = apperr.Conflict("request_in_flight", "a request with this idempotency key is still being processed")

const pendingMarker = "pending"

// IdempotencyStore remembers the result of a request by its client key.
//
// Reserve claims key and returns "" for a new key, or the stored result of
// a completed request. A claimed but unfinished key yields ErrRequestInFlight.
// The claimant must follow with Complete on success or Release on failure.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (string, error)
	Complete(ctx context.Context, key, result string) error
	Release(ctx context.Context, key string) error
}

// AppointmentKey namespaces client supplied keys for bookings.
func AppointmentKey(key string) string {
	return "idem:appointment:" + key
}

type redisIdempotency struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisIdempotency(client redis.UniversalClient, ttl time.Duration) IdempotencyStore {
	return &redisIdempotency{client: client, ttl: ttl}
}

func (s *redisIdempotency) Reserve(ctx context.Context, key string) (string, error) {
	ok, err := s.client.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", apperr.Persistence("reserve idempotency key", err)
	}
	if ok {
		return "", nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between the two calls.
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return "", apperr.Persistence("read idempotency key", err)
	}
	if val == pendingMarker {
		return "", ErrRequestInFlight
	}
	return val, nil
}

func (s *redisIdempotency) Complete(ctx context.Context, key, result string) error {
	if err := s.client.Set(ctx, key, result, s.ttl).Err(); err != nil {
		return apperr.Persistence("complete idempotency key", err)
	}
	return nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *redisIdempotency) Release(ctx context.Context, key string) error {
	err := releaseScript.Run(ctx, s.client, []string{key}, pendingMarker).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return apperr.Persistence("release idempotency key", err)
	}
	return nil
}
