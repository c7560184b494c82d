package quota_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/store/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func fixed(l quota.Limits) quota.LimitSource {
	return func(context.Context) (quota.Limits, error) { return l, nil }
}

func TestEffectiveLimits(t *testing.T) {
	l := quota.Limits{role.Owner: 3, role.Guest: 10, role.Admin: 7}

	assert.Equal(t, quota.Unlimited, l.Effective(role.Owner))
	assert.Equal(t, quota.Forbidden, l.Effective(role.Guest))
	assert.Equal(t, quota.Limit(7), l.Effective(role.Admin))
	assert.Equal(t, quota.DefaultMemberLimit, l.Effective(role.Member))
	assert.Equal(t, quota.Forbidden, l.Effective("stranger"))
}

func TestMergeIgnoresHardwiredRoles(t *testing.T) {
	merged, err := quota.DefaultLimits().Merge(quota.Limits{role.Owner: 1, role.Guest: 100, role.Member: 9})
	require.NoError(t, err)
	assert.Equal(t, quota.Limits{role.Admin: quota.DefaultAdminLimit, role.Member: 9}, merged)

	_, err = quota.DefaultLimits().Merge(quota.Limits{role.Admin: -2})
	assert.True(t, errors.Is(err, quota.ErrInvalidLimit))
}

func TestDayIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	assert.Equal(t, "2026-10-17", quota.Day(time.Date(2026, 10, 18, 8, 59, 0, 0, loc)))
	assert.Equal(t, "2026-10-18", quota.Day(time.Date(2026, 10, 18, 9, 0, 0, 0, loc)))
}

func TestMemberDailyLimitAndRollover(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC)}
	l := quota.NewLedger(memory.New(), fixed(quota.DefaultLimits()), c.now)

	for i := 1; i <= 2; i++ {
		d, err := l.TryConsume(ctx, "m1", role.Member)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "send %d", i)
		assert.Equal(t, i, d.Used)
	}

	d, err := l.TryConsume(ctx, "m1", role.Member)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonLimitReached, d.Reason)

	c.set(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	d, err = l.TryConsume(ctx, "m1", role.Member)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "2026-10-19", d.Day)
	assert.Equal(t, 1, d.Used)
}

func TestSentinelsNeverTouchStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := quota.NewLedger(s, fixed(quota.Limits{role.Admin: quota.Unlimited, role.Member: quota.Forbidden}), nil)

	for _, r := range []role.Name{role.Owner, role.Admin} {
		d, err := l.TryConsume(ctx, "u-"+string(r), r)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	for _, r := range []role.Name{role.Guest, role.Member} {
		d, err := l.TryConsume(ctx, "u-"+string(r), r)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, quota.ReasonRoleForbidden, d.Reason)
	}

	rows, err := s.ListDailyQuotas(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLimitSourceErrorPropagates(t *testing.T) {
	boom := errors.New("config store down")
	l := quota.NewLedger(memory.New(), func(context.Context) (quota.Limits, error) { return nil, boom }, nil)

	_, err := l.TryConsume(context.Background(), "a1", role.Admin)
	assert.ErrorIs(t, err, boom)

	d, err := l.TryConsume(context.Background(), "o1", role.Owner)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestConcurrentConsumeExactlyRemaining(t *testing.T) {
	ctx := context.Background()
	l := quota.NewLedger(memory.New(), fixed(quota.Limits{role.Admin: 5}), nil)

	d, err := l.TryConsume(ctx, "a1", role.Admin)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	const n = 40
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.TryConsume(ctx, "a1", role.Admin)
			if err != nil {
				t.Error(err)
				return
			}
			results <- d.Allowed
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for ok := range results {
		if ok {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)
}

func TestUsage(t *testing.T) {
	ctx := context.Background()
	l := quota.NewLedger(memory.New(), fixed(quota.DefaultLimits()), nil)

	_, err := l.TryConsume(ctx, "m1", role.Member)
	require.NoError(t, err)

	u, err := l.Usage(ctx, "m1", role.Member)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Used)
	assert.Equal(t, 1, u.Remaining)

	u, err = l.Usage(ctx, "o1", role.Owner)
	require.NoError(t, err)
	assert.Equal(t, -1, u.Remaining)
}
