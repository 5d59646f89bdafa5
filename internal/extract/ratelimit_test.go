package extract

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps or the test says so.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newFakeLimiter(interval time.Duration) (*IntervalLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewIntervalLimiter(interval)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestIntervalLimiterSpacesCalls(t *testing.T) {
	l, clock := newFakeLimiter(time.Second)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	assert.Empty(t, clock.slept, "first call should not wait")

	require.NoError(t, l.Wait(ctx))
	assert.Equal(t, []time.Duration{time.Second}, clock.slept)

	clock.now = clock.now.Add(400 * time.Millisecond)
	require.NoError(t, l.Wait(ctx))
	assert.Equal(t, 600*time.Millisecond, clock.slept[1])

	clock.now = clock.now.Add(5 * time.Second)
	require.NoError(t, l.Wait(ctx))
	assert.Len(t, clock.slept, 2, "no wait once the interval has passed")
}

func TestIntervalLimiterReset(t *testing.T) {
	l, clock := newFakeLimiter(time.Second)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	l.Reset()
	require.NoError(t, l.Wait(ctx))
	assert.Empty(t, clock.slept)
}

func TestIntervalLimiterCancelled(t *testing.T) {
	l := NewIntervalLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestIntervalLimiterConcurrent(t *testing.T) {
	const callers = 5
	interval := 20 * time.Millisecond
	l := NewIntervalLimiter(interval)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Wait(context.Background()))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), (callers-1)*interval)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("ARCHIVER_TEST_REDIS")
	if addr == "" {
		t.Skip("set ARCHIVER_TEST_REDIS to a redis address to run")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	key := "archiver:test:" + t.Name()
	require.NoError(t, client.Del(ctx, key).Err())

	interval := 200 * time.Millisecond
	a := NewRedisLimiter(client, key, interval)
	b := NewRedisLimiter(client, key, interval)

	start := time.Now()
	require.NoError(t, a.Wait(ctx))
	require.NoError(t, b.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), interval-10*time.Millisecond)
}
