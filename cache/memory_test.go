package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	if _, ok := c.Get(ctx, "email_service"); ok {
		t.Fatal("expected cache miss")
	}

	cfg := settings.Default()
	cfg.Enabled = true
	c.Set(ctx, "email_service", cfg)

	got, ok := c.Get(ctx, "email_service")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Enabled {
		t.Fatal("expected enabled snapshot")
	}
}

func TestMemoryCacheStoresCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	cfg := settings.Default()
	c.Set(ctx, "k", cfg)
	cfg.RoleLimits[role.Member] = 99

	got, _ := c.Get(ctx, "k")
	if got.RoleLimits[role.Member] != quota.DefaultMemberLimit {
		t.Fatalf("cached snapshot changed through caller's copy: %v", got.RoleLimits)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	c := NewMemory(WithTTL(time.Second), WithClock(clk.now))

	c.Set(ctx, "k", settings.Default())
	clk.advance(2 * time.Second)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, have %d", c.Len())
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "k", settings.Default())
	c.Invalidate(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.Set(ctx, "a", settings.Default())
	c.Set(ctx, "b", settings.Default())
	c.Set(ctx, "c", settings.Default())

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Fatal("newest entry should be present")
	}
}

func TestMemoryCacheZeroTTLDisables(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(0))
	c.Set(ctx, "k", settings.Default())
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("zero TTL should disable caching")
	}
}
