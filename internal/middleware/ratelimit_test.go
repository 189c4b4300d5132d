package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterThrottlesAfterBurst(t *testing.T) {
	rl := NewRateLimiter(60)
	require.NotNil(t, rl)

	limiter := rl.getLimiter("203.0.113.7")
	for i := 0; i < rl.burst; i++ {
		require.True(t, limiter.Allow())
	}
	require.False(t, limiter.Allow())
}

func TestRateLimiterIsPerClient(t *testing.T) {
	rl := NewRateLimiter(60)

	first := rl.getLimiter("203.0.113.7")
	for first.Allow() {
	}
	require.True(t, rl.getLimiter("203.0.113.8").Allow())
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(60)

	rl.getLimiter("203.0.113.7")
	rl.mu.Lock()
	rl.clients["203.0.113.7"].lastSeen = time.Now().Add(-rl.window - time.Minute)
	rl.mu.Unlock()

	// Registering a new client sweeps the idle entry.
	rl.getLimiter("203.0.113.8")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.NotContains(t, rl.clients, "203.0.113.7")
	require.Contains(t, rl.clients, "203.0.113.8")
}

func TestDisabledRateLimiter(t *testing.T) {
	require.Nil(t, NewRateLimiter(0))

	var rl *RateLimiter
	require.NotNil(t, rl.Handler())
}
