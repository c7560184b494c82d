package extension

import (
	"context"
	"testing"

	"github.com/xraph/mailwarden/store/memory"
)

func TestNewAppliesOptions(t *testing.T) {
	s := memory.New()
	e := New(
		WithStore(s),
		WithRedisURL("redis://localhost:6379/0"),
		WithDisableRoutes(),
		WithDisableMigrate(),
	)

	if e.Name() != ExtensionName {
		t.Fatalf("Name() = %q", e.Name())
	}
	if e.store != s {
		t.Fatal("store option not applied")
	}
	if !e.config.DisableRoutes || !e.config.DisableMigrate {
		t.Fatal("disable options not applied")
	}
	if e.config.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("RedisURL = %q", e.config.RedisURL)
	}
	if e.config.CacheTTL != DefaultConfig().CacheTTL {
		t.Fatalf("defaults were not kept: CacheTTL = %v", e.config.CacheTTL)
	}
}

func TestUninitializedExtension(t *testing.T) {
	e := New()
	ctx := context.Background()

	if err := e.Start(ctx); err == nil {
		t.Fatal("Start should fail before Register")
	}
	if err := e.Health(ctx); err == nil {
		t.Fatal("Health should fail before Register")
	}
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop before Register: %v", err)
	}
	if e.Handler() == nil {
		t.Fatal("Handler should never be nil")
	}
}
