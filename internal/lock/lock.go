package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	lockKeyPrefix      = "concert_lock:"
	remainingKeyPrefix = "tickets_remaining:"
)

// Redis serializes purchase attempts per concert with a SetNX lock and
// caches remaining ticket counts for the read path. The lock TTL bounds how
// long a crashed holder can block a concert.
type Redis struct {
	Client *redis.Client

	LockTTL      time.Duration
	LockRetries  int
	RetryWait    time.Duration
	RemainingTTL time.Duration
}

func NewRedis(client *redis.Client, lockTTL time.Duration, lockRetries int, retryWait, remainingTTL time.Duration) *Redis {
	return &Redis{
		Client:       client,
		LockTTL:      lockTTL,
		LockRetries:  lockRetries,
		RetryWait:    retryWait,
		RemainingTTL: remainingTTL,
	}
}

// LockConcert attempts one non-blocking lock grab for a concert.
func (r *Redis) LockConcert(ctx context.Context, concertID, holderID string) (bool, error) {
	return r.Client.SetNX(ctx, lockKeyPrefix+concertID, holderID, r.LockTTL).Result()
}

// UnlockConcert releases the lock only when the holder still owns it, so a
// holder whose lock expired cannot release somebody else's.
func (r *Redis) UnlockConcert(ctx context.Context, concertID, holderID string) error {
	key := lockKeyPrefix + concertID
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired or released
	}
	if err != nil {
		return err
	}
	if val == holderID {
		_, err = r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// Acquire grabs the concert lock, retrying with a fixed wait until the
// retry budget or the context runs out.
func (r *Redis) Acquire(ctx context.Context, concertID, holderID string) error {
	for attempt := 0; attempt <= r.LockRetries; attempt++ {
		ok, err := r.LockConcert(ctx, concertID, holderID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.RetryWait):
		}
	}
	return fmt.Errorf("concert %s is locked by another purchase attempt", concertID)
}

// Release gives the lock back.
func (r *Redis) Release(ctx context.Context, concertID, holderID string) error {
	return r.UnlockConcert(ctx, concertID, holderID)
}

// GetRemaining reads the cached remaining count. The second return value is
// false on a cache miss.
func (r *Redis) GetRemaining(ctx context.Context, concertID string) (int, bool, error) {
	val, err := r.Client.Get(ctx, remainingKeyPrefix+concertID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	remaining, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt remaining count for %s: %w", concertID, err)
	}
	return remaining, true, nil
}

// SetRemaining caches a remaining count with a short TTL.
func (r *Redis) SetRemaining(ctx context.Context, concertID string, remaining int) error {
	return r.Client.Set(ctx, remainingKeyPrefix+concertID, strconv.Itoa(remaining), r.RemainingTTL).Err()
}

// InvalidateRemaining drops the cached count after any inventory mutation.
func (r *Redis) InvalidateRemaining(ctx context.Context, concertID string) error {
	return r.Client.Del(ctx, remainingKeyPrefix+concertID).Err()
}
