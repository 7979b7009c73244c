package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Release must compare-and-delete so a lock that expired and was
	// re-acquired by another worker is never deleted by the old owner.
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// DistributedLock serializes work on one checkout across worker replicas.
// The lock value is a random token so only the acquiring instance can
// release or extend it.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	held   bool
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    "lock:" + key,
		token:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire takes the lock if it is free. It never blocks.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.held = ok
	return ok, nil
}

// AcquireWithRetry retries Acquire with a fixed delay until it succeeds,
// the retry budget runs out, or the context is cancelled.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return errors.New("failed to acquire lock after retries")
}

// Extend pushes the expiry out while long verification work is in flight.
func (l *DistributedLock) Extend(ctx context.Context, additionalTTL time.Duration) error {
	if !l.held {
		return errors.New("lock not acquired")
	}

	res, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, additionalTTL.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if n, ok := res.(int64); !ok || n == 0 {
		return errors.New("lock not held or expired")
	}
	return nil
}

// Release frees the lock. Releasing a lock that was never acquired is a
// no-op.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}

	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n, ok := res.(int64); !ok || n == 0 {
		return errors.New("lock not held or already released")
	}

	l.held = false
	return nil
}

func (l *DistributedLock) IsAcquired() bool {
	return l.held
}
