package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitSpacesRequests(t *testing.T) {
	// 600 rpm = one token every 100ms.
	a := New(600)
	ctx := context.Background()

	require.NoError(t, a.Wait(ctx)) // first token is free

	start := time.Now()
	require.NoError(t, a.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitUnlimited(t *testing.T) {
	a := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, a.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitHonorsContext(t *testing.T) {
	a := New(1) // one request per minute
	ctx := context.Background()
	require.NoError(t, a.Wait(ctx))

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, a.Wait(ctx))
}
