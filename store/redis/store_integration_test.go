//go:build integration

package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xraph/mailwarden/quota"
)

const startupTimeout = 30 * time.Second

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.4-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	opts = append([]Option{WithRetention(time.Hour)}, opts...)
	s, err := Open(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIncrementStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := quota.Day(time.Now())

	for i := 1; i <= 3; i++ {
		q, ok, err := s.IncrementDailyQuota(ctx, "u1", day, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, q.SentCount)
	}
	q, ok, err := s.IncrementDailyQuota(ctx, "u1", day, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, q.SentCount)

	got, err := s.GetDailyQuota(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SentCount)
	assert.False(t, got.ID.IsNil())
}

// A short retention must not let the counter expire before its day ends.
func TestCounterSurvivesUntilEndOfDay(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	day := quota.Day(now)
	dayEnd := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

	var mu sync.Mutex
	clock := now.Truncate(24 * time.Hour).Add(5 * time.Minute)
	s := newTestStore(t, WithRetention(time.Minute), WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}))

	for range 2 {
		_, ok, err := s.IncrementDailyQuota(ctx, "m1", day, 2)
		require.NoError(t, err)
		require.True(t, ok)
	}

	mu.Lock()
	clock = dayEnd.Add(-time.Second)
	mu.Unlock()

	for range 3 {
		q, ok, err := s.IncrementDailyQuota(ctx, "m1", day, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 2, q.SentCount)
	}

	ttl, err := s.client.TTL(ctx, s.key("m1", day)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Until(dayEnd), "row must live past the end of its day")
}

func TestZeroRetentionKeepsCounter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithRetention(0))
	day := quota.Day(time.Now())

	for range 2 {
		_, ok, err := s.IncrementDailyQuota(ctx, "m1", day, 2)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, err := s.IncrementDailyQuota(ctx, "m1", day, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := s.client.TTL(ctx, s.key("m1", day)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "row must have no expiry")
}

func TestIncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const limit, attempts = 5, 60
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.IncrementDailyQuota(ctx, "u:with:colons", "2026-10-18", limit)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, allowed)

	rows, err := s.ListDailyQuotas(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u:with:colons", rows[0].UserID)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithRetention(0))

	for _, day := range []string{"2026-09-01", "2026-10-17", "2026-10-18"} {
		_, _, err := s.IncrementDailyQuota(ctx, "u1", day, 10)
		require.NoError(t, err)
	}

	n, err := s.PurgeDailyQuotas(ctx, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.ListDailyQuotas(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = s.client.Get(ctx, s.key("u1", "2026-09-01")).Result()
	assert.ErrorIs(t, err, goredis.Nil)
}
