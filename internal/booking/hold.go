package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HoldStore places a short-lived hold on a machine while a member walks
// through the booking flow, so two members filling the form at once get
// an early "someone is booking this" signal. Holds expire on their own
// and are advisory only: the locked re-check at submit time is the real
// guard, so a disabled or unreachable hold store never compromises
// correctness.
type HoldStore interface {
	Acquire(ctx context.Context, machineID, userID string) error
	Release(ctx context.Context, machineID, userID string) error
}

type redisHoldStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisHoldStore(client *redis.Client, ttl time.Duration) HoldStore {
	return &redisHoldStore{client: client, ttl: ttl}
}

func holdKey(machineID string) string {
	return "booking:hold:" + machineID
}

func (s *redisHoldStore) Acquire(ctx context.Context, machineID, userID string) error {
	ok, err := s.client.SetNX(ctx, holdKey(machineID), userID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire hold failed: %w", err)
	}
	if ok {
		return nil
	}

	holder, err := s.client.Get(ctx, holdKey(machineID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SetNX and Get; retry once.
			ok, err = s.client.SetNX(ctx, holdKey(machineID), userID, s.ttl).Result()
			if err != nil {
				return fmt.Errorf("acquire hold failed: %w", err)
			}
			if ok {
				return nil
			}
			return ErrWindowHeld
		}
		return fmt.Errorf("read hold failed: %w", err)
	}
	if holder == userID {
		// Re-entry by the same member extends the hold.
		if err := s.client.Expire(ctx, holdKey(machineID), s.ttl).Err(); err != nil {
			return fmt.Errorf("extend hold failed: %w", err)
		}
		return nil
	}
	return ErrWindowHeld
}

// releaseScript deletes the hold only when the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

func (s *redisHoldStore) Release(ctx context.Context, machineID, userID string) error {
	if err := releaseScript.Run(ctx, s.client, []string{holdKey(machineID)}, userID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release hold failed: %w", err)
	}
	return nil
}

// nopHoldStore is used when no hold backend is configured.
type nopHoldStore struct{}

func NewNopHoldStore() HoldStore { return nopHoldStore{} }

func (nopHoldStore) Acquire(context.Context, string, string) error { return nil }
func (nopHoldStore) Release(context.Context, string, string) error { return nil }
