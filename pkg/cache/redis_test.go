package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:key1", "value1", time.Hour))

	val, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)

	_, err = client.Get(ctx, "test:missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_Expiration(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "calendar_oauth_state:abc", "user_1", 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	_, err := client.Get(ctx, "calendar_oauth_state:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_Take(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "password_reset:hash", "ana@example.com", time.Hour))

	val, err := client.Take(ctx, "password_reset:hash")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", val)

	_, err = client.Take(ctx, "password_reset:hash")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_JSON(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	type stats struct {
		TotalLeads int64 `json:"total_leads"`
	}
	require.NoError(t, client.SetJSON(ctx, "dashboard_stats:user_1", stats{TotalLeads: 7}, 30*time.Second))

	var got stats
	require.NoError(t, client.GetJSON(ctx, "dashboard_stats:user_1", &got))
	assert.Equal(t, int64(7), got.TotalLeads)
}

func TestClient_DeletePattern(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	_ = client.Set(ctx, "dashboard_stats:user_1", "a", time.Minute)
	_ = client.Set(ctx, "dashboard_stats:user_2", "b", time.Minute)
	_ = client.Set(ctx, "password_reset:x", "c", time.Minute)

	require.NoError(t, client.DeletePattern(ctx, "dashboard_stats:*"))

	assert.False(t, mr.Exists("dashboard_stats:user_1"))
	assert.False(t, mr.Exists("dashboard_stats:user_2"))
	assert.True(t, mr.Exists("password_reset:x"))
}

func TestClient_SetNX(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "job_lock:reminders", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "job_lock:reminders", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = client.SetNX(ctx, "job_lock:reminders", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
