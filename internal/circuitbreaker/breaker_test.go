package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreaker(t *testing.T) (*CircuitBreaker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, 3, 10*time.Second), mr
}

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newBreaker(t)
	ctx := context.Background()
	boom := errors.New("upstream down")

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, "gemini", func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	err := cb.Execute(ctx, "gemini", func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newBreaker(t)
	ctx := context.Background()
	boom := errors.New("upstream down")

	cb.Execute(ctx, "gemini", func() error { return boom })
	cb.Execute(ctx, "gemini", func() error { return boom })
	require.NoError(t, cb.Execute(ctx, "gemini", func() error { return nil }))

	// Two more failures should not trip (count restarted).
	cb.Execute(ctx, "gemini", func() error { return boom })
	cb.Execute(ctx, "gemini", func() error { return boom })
	err := cb.Execute(ctx, "gemini", func() error { return nil })
	assert.NoError(t, err)
}

func TestCooldownReadmitsTraffic(t *testing.T) {
	cb, mr := newBreaker(t)
	ctx := context.Background()
	boom := errors.New("upstream down")

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, "gemini", func() error { return boom })
	}
	require.ErrorIs(t, cb.Execute(ctx, "gemini", func() error { return nil }), ErrCircuitOpen)

	mr.FastForward(11 * time.Second)

	assert.NoError(t, cb.Execute(ctx, "gemini", func() error { return nil }))
}

func TestRedisOutageIsPassThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	cb := New(client, 3, time.Second)

	called := false
	err := cb.Execute(context.Background(), "gemini", func() error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}
