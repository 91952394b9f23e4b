package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetintel/aigateway/internal/limits"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestRedisWindowAccounting(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	rule := limits.Rule{Endpoint: "vet-search", MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, d.ResetAt.Before(time.Now().Add(-time.Second)), "resetTime is not in the past")

	// Denials repeat while blocked.
	d, err = s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestRedisBlockExpires(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	rule := limits.Rule{Endpoint: "vet-search", MaxRequests: 2, Window: 300 * time.Millisecond}

	for i := 0; i < 3; i++ {
		s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	}
	d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	time.Sleep(350 * time.Millisecond)

	d, err = s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "fresh window after block elapses")
	assert.Equal(t, 1, d.Remaining)
}

func TestRedisStaleWindowOpensFresh(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	rule := limits.Rule{Endpoint: "vet-search", MaxRequests: 5, Window: 200 * time.Millisecond}

	s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)

	time.Sleep(250 * time.Millisecond)

	d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining, "count reset for the fresh window")
}

func TestRedisKeysAreIndependent(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	rule := limits.Rule{Endpoint: "vet-search", MaxRequests: 1, Window: time.Minute}

	d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = s.Allow(ctx, "user-2", "vet-search", "10.0.0.2", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisNoOverAdmissionUnderRace(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	rule := limits.Rule{Endpoint: "vet-search", MaxRequests: 5, Window: time.Minute}

	for i := 0; i < rule.MaxRequests-1; i++ {
		_, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
		require.NoError(t, err)
	}

	const contenders = 2
	decisions := make([]Decision, contenders)
	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			d, err := s.Allow(ctx, "user-1", "vet-search", "10.0.0.1", rule)
			assert.NoError(t, err)
			decisions[i] = d
		}(i)
	}
	start.Done()
	wg.Wait()

	admitted := 0
	for _, d := range decisions {
		if d.Allowed {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted, "script keeps the increment atomic per key")
}

func TestRedisStoreErrorSurfaces(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewRedisStore(client)

	_, err := s.Allow(context.Background(), "user-1", "vet-search", "10.0.0.1",
		limits.Rule{Endpoint: "vet-search", MaxRequests: 10, Window: time.Minute})

	assert.Error(t, err, "infrastructure failure is the caller's fail-open signal")
}
