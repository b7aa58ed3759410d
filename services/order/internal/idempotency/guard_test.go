package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuard(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, time.Hour), mr
}

func TestBegin_FirstRequestProceeds(t *testing.T) {
	g, mr := setupGuard(t)
	ctx := context.Background()

	prev, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Empty(t, prev)

	val, err := mr.Get("checkout:u1:k1")
	require.NoError(t, err)
	assert.Equal(t, inFlight, val)
	assert.Equal(t, time.Hour, mr.TTL("checkout:u1:k1"))
}

func TestBegin_ConcurrentDuplicateRejected(t *testing.T) {
	g, _ := setupGuard(t)
	ctx := context.Background()

	_, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)

	_, err = g.Begin(ctx, "u1", "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	prev, err := g.Begin(ctx, "u2", "k1")
	require.NoError(t, err, "keys are scoped per user")
	assert.Empty(t, prev)
}

func TestComplete_ReplaysOrderNumber(t *testing.T) {
	g, _ := setupGuard(t)
	ctx := context.Background()

	_, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	require.NoError(t, g.Complete(ctx, "u1", "k1", "ORD-20260101-ABCDEF12"))

	prev, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-ABCDEF12", prev)
}

func TestAbort_ReleasesKey(t *testing.T) {
	g, mr := setupGuard(t)
	ctx := context.Background()

	_, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	require.NoError(t, g.Abort(ctx, "u1", "k1"))
	assert.False(t, mr.Exists("checkout:u1:k1"))

	prev, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Empty(t, prev)
}

func TestBegin_ExpiredMarker(t *testing.T) {
	g, mr := setupGuard(t)
	ctx := context.Background()

	_, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	prev, err := g.Begin(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Empty(t, prev)
}

func TestBegin_RedisDown(t *testing.T) {
	g, mr := setupGuard(t)
	mr.Close()

	_, err := g.Begin(context.Background(), "u1", "k1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInFlight)
}
