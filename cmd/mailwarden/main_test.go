package main

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}

	ext := cfg.extensionConfig()
	if ext.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", ext.RedisURL)
	}
	if !ext.AuditChecks {
		t.Error("audit should default on")
	}
	if ext.Retention != 90*24*time.Hour {
		t.Errorf("Retention = %v", ext.Retention)
	}
	if got := ext.DefaultLimits[role.Admin]; got != quota.DefaultAdminLimit {
		t.Errorf("admin limit = %v, want %v", got, quota.DefaultAdminLimit)
	}
	if got := ext.DefaultLimits[role.Member]; got != quota.DefaultMemberLimit {
		t.Errorf("member limit = %v, want %v", got, quota.DefaultMemberLimit)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MAILWARDEN_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("MAILWARDEN_AUDIT_CHECKS", "false")
	t.Setenv("MAILWARDEN_MEMBER_DAILY_LIMIT", "-1")
	t.Setenv("MAILWARDEN_PURGE_INTERVAL", "15m")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}

	ext := cfg.extensionConfig()
	if ext.RedisURL != "redis://cache:6379/2" {
		t.Errorf("RedisURL = %q", ext.RedisURL)
	}
	if ext.AuditChecks {
		t.Error("audit should be off")
	}
	if ext.PurgeInterval != 15*time.Minute {
		t.Errorf("PurgeInterval = %v", ext.PurgeInterval)
	}
	if got := ext.DefaultLimits[role.Member]; got != quota.Forbidden {
		t.Errorf("member limit = %v, want forbidden", got)
	}
}
