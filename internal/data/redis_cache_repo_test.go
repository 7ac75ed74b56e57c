package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/internal/testutil"
)

func TestRedisCacheRepo_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set stores value with ttl", func(t *testing.T) {
		key := "test:outbound:prefs:cust-1"
		value := []byte(`{"customer_id":"cust-1","dnc":true}`)

		require.NoError(t, repo.Set(ctx, key, value, 30*time.Second))

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		ttl := client.TTL(ctx, key).Val()
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 30*time.Second)
	})

	t.Run("absent marker is a value, not a miss", func(t *testing.T) {
		key := "test:outbound:prefs:unknown"
		require.NoError(t, repo.Set(ctx, key, []byte("null"), time.Minute))

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("null"), got)
	})

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := repo.Get(ctx, "test:outbound:missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete reports existence", func(t *testing.T) {
		key := "test:outbound:identity:sms:+15551234567"
		require.NoError(t, repo.Set(ctx, key, []byte(`"cust-9"`), time.Minute))

		existed, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_RejectsEmptyKey(t *testing.T) {
	// Validation runs before any command is sent, so no server is needed.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.ErrorIs(t, repo.Set(ctx, "", []byte("v"), time.Minute), errEmptyCacheKey)
	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, errEmptyCacheKey)
	_, err = repo.Delete(ctx, "")
	require.ErrorIs(t, err, errEmptyCacheKey)
}

func TestRedisCacheRepo_HealthUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorContains(t, NewRedisCacheRepo(client).Health(ctx), "redis ping")
}
