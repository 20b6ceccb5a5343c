package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prperemyshlev/platform-services/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *database.Redis {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	r, err := database.NewRedis(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	limiter := NewRateLimiter(startRedis(t))
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "203.0.113.7", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 2-i, decision.Remaining)
		now = now.Add(time.Second)
	}

	decision, err := limiter.Allow(ctx, "203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.InDelta(t, float64(57*time.Second), float64(decision.RetryAfter), float64(time.Millisecond))

	// Another key has its own window
	decision, err = limiter.Allow(ctx, "198.51.100.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Once the first entry leaves the window a slot frees up
	now = now.Add(58 * time.Second)
	decision, err = limiter.Allow(ctx, "203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
