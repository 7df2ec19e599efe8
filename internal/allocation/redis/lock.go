package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is the slice of redis commands the run guard needs. *redis.Client
// satisfies it; tests substitute an in-memory fake.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const defaultTTL = 30 * time.Minute

// Lock is the duplicate-trigger guard for allocation runs: one SetNX key
// per service date, held for the duration of the run. The TTL bounds how
// long a crashed run can keep a date fenced.
type Lock struct {
	Client Client
	TTL    time.Duration
}

func NewLock(client Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Lock{Client: client, TTL: ttl}
}

// LockDate claims the run guard for a service date. Returns false when
// another run already holds it.
func (l *Lock) LockDate(date, runID string) (bool, error) {
	key := "allocation_lock:" + date
	return l.Client.SetNX(context.Background(), key, runID, l.TTL).Result()
}

// UnlockDate releases the guard, but only for the run that holds it.
func (l *Lock) UnlockDate(date, runID string) error {
	ctx := context.Background()
	key := fmt.Sprintf("allocation_lock:%s", date)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == runID {
		_, err := l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// IsDateGuarded reports whether a run guard is currently held for the date.
func (l *Lock) IsDateGuarded(date string) (bool, error) {
	_, err := l.Client.Get(context.Background(), "allocation_lock:"+date).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
