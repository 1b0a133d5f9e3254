package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/ratelimit"
)

func TestWaitEnforcesMinInterval(t *testing.T) {
	lim := ratelimit.New("test", ratelimit.Config{
		MinInterval:       40 * time.Millisecond,
		RequestsPerWindow: 100,
		Window:            time.Minute,
	}, logger.NewNopLogger())

	ctx := context.Background()
	var stamps []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, lim.Wait(ctx))
		stamps = append(stamps, time.Now())
	}

	// Allow a little scheduler jitter but never less than ~the interval.
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 35*time.Millisecond,
			"calls %d and %d spaced %v apart", i-1, i, gap)
	}
}

func TestWaitBlocksOnWindowQuota(t *testing.T) {
	lim := ratelimit.New("test", ratelimit.Config{
		MinInterval:       time.Millisecond,
		RequestsPerWindow: 3,
		Window:            150 * time.Millisecond,
	}, logger.NewNopLogger())

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(ctx))
	}
	assert.Equal(t, 3, lim.InWindow())

	// Fourth call must wait for the window to roll over.
	require.NoError(t, lim.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 1, lim.InWindow())
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	lim := ratelimit.New("test", ratelimit.Config{
		MinInterval:       time.Millisecond,
		RequestsPerWindow: 1,
		Window:            time.Hour,
	}, logger.NewNopLogger())

	require.NoError(t, lim.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := lim.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimitersAreScopedPerService(t *testing.T) {
	cfg := ratelimit.Config{
		MinInterval:       time.Millisecond,
		RequestsPerWindow: 1,
		Window:            time.Hour,
	}
	primary := ratelimit.New("primary", cfg, logger.NewNopLogger())
	store := ratelimit.New("store", cfg, logger.NewNopLogger())

	ctx := context.Background()
	require.NoError(t, primary.Wait(ctx))

	// Exhausting one limiter's quota must not affect the other.
	done := make(chan error, 1)
	go func() { done <- store.Wait(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("store limiter blocked by primary limiter quota")
	}
}
