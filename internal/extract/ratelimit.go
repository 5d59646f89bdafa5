package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter spaces out calls to one provider.
type Limiter interface {
	Wait(ctx context.Context) error
}

// IntervalLimiter enforces a minimum interval between calls inside one
// process. The zero interval never waits.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval, now: time.Now, sleep: sleepContext}
}

// Wait blocks until interval has passed since the previous call returned.
// Callers are served one at a time.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if d := l.interval - l.now().Sub(l.last); d > 0 {
			if err := l.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}

// Reset forgets the previous call.
func (l *IntervalLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = time.Time{}
}

// RedisLimiter shares the interval between processes through a key that
// lives for one interval after each call.
type RedisLimiter struct {
	client   *redis.Client
	key      string
	interval time.Duration
}

func NewRedisLimiter(client *redis.Client, key string, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, key: key, interval: interval}
}

func (l *RedisLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}
	for {
		ok, err := l.client.SetNX(ctx, l.key, time.Now().UnixNano(), l.interval).Result()
		if err != nil {
			return fmt.Errorf("acquiring rate limit slot %s: %w", l.key, err)
		}
		if ok {
			return nil
		}

		ttl, err := l.client.PTTL(ctx, l.key).Result()
		if err != nil {
			return fmt.Errorf("reading rate limit slot %s: %w", l.key, err)
		}
		if ttl <= 0 {
			ttl = 10 * time.Millisecond
		}
		if err := sleepContext(ctx, ttl); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
