package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

type testRedisConfig struct {
	// Addr pins the server; otherwise the compose service name, localhost and
	// the local test profile port are probed in that order.
	Addr string `env:"REDIS_ADDR"`
	// DB pins the logical database; -1 reserves a free one in 1..15.
	DB int `env:"TEST_REDIS_DB" envDefault:"-1"`
}

var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// SetupTestRedis returns a client on an empty logical database, reserved for
// the duration of the test so parallel packages never flush each other's keys.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	var cfg testRedisConfig
	if err := env.Parse(&cfg); err != nil {
		t.Logf("invalid test redis env, using defaults: %v", err)
		cfg = testRedisConfig{DB: -1}
	}

	candidates := redisCandidates
	if cfg.Addr != "" {
		candidates = []string{cfg.Addr}
	}
	addr, err := firstReachable(candidates)
	if err != nil {
		if f := loadRequireFlags(); f.Redis || f.Infra {
			t.Fatal("redis not available for testing:", err)
		}
		t.Skip("redis not available for testing:", err)
	}

	dbIndex := cfg.DB
	if dbIndex < 0 {
		dbIndex = reserveRedisDB(t, addr)
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		closeAndLog(t, "redis client", client)
		t.Skipf("redis flush failed at %s: %v", addr, err)
	}
	return client
}

func firstReachable(addrs []string) (string, error) {
	var lastErr error
	for _, addr := range addrs {
		c := redis.NewClient(&redis.Options{Addr: addr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = c.Ping(ctx).Err()
		cancel()
		_ = c.Close()
		if lastErr == nil {
			return addr, nil
		}
	}
	return "", lastErr
}

// reserveRedisDB claims a logical database by SETNX on a lock key in DB 0,
// which FlushDB on the reserved database leaves intact.
func reserveRedisDB(t TestingTB, addr string) int {
	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer closeAndLog(t, "redis meta client", meta)

	for i := 1; i <= 15; i++ {
		lockKey := fmt.Sprintf("mmk-outbound:testutil:db_lock:%d", i)
		lockVal := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, lockKey, lockVal, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}

		t.Cleanup(func() {
			c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
			defer closeAndLog(t, "redis cleanup client", c)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := c.Del(ctx, lockKey).Err(); err != nil {
				t.Logf("warning: release redis db lock %s: %v", lockKey, err)
			}
		})
		t.Logf("using redis DB=%d at %s", i, addr)
		return i
	}

	t.Logf("no free redis DB at %s, falling back to DB=1", addr)
	return 1
}
