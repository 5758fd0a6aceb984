package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the stored token matches, so a
// holder whose lease already expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// LeaseLock is a per-flight advisory lock: polling SETNX acquire with a fixed
// retry interval and a bounded overall wait, auto-expiring via TTL so a
// crashed holder cannot deadlock others.
type LeaseLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewLeaseLock(client *redis.Client, ttl, wait, retry time.Duration) *LeaseLock {
	return &LeaseLock{client: client, ttl: ttl, wait: wait, retry: retry}
}

// Acquire polls until the lock is taken or the wait budget is spent, in which
// case it fails with ErrLockTimeout. The returned token must be presented to
// Release.
func (l *LeaseLock) Acquire(ctx context.Context, flightID uuid.UUID) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, lockKey(flightID), token, l.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("acquire lock for flight %s: %w", flightID, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", domain.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *LeaseLock) Release(ctx context.Context, flightID uuid.UUID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(flightID)}, token).Err()
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:flight:%s", id)
}
