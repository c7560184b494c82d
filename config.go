package mailwarden

import (
	"time"

	"github.com/xraph/mailwarden/quota"
)

// Config holds configuration for the mailwarden engine.
type Config struct {
	// CacheTTL bounds how stale the cached email-service configuration may
	// be in other processes. Writes through this engine invalidate it
	// immediately. Defaults to 30s.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// AuditChecks records every decision in the check log.
	AuditChecks bool `json:"audit_checks,omitempty"`

	// Retention is how long quota rows and check logs are kept by Purge.
	// Zero disables purging. Defaults to 90 days.
	Retention time.Duration `json:"retention,omitempty"`

	// PurgeInterval runs Purge in the background after Start. Zero
	// disables the background loop.
	PurgeInterval time.Duration `json:"purge_interval,omitempty"`

	// DefaultLimits replaces the built-in admin and member limits until an
	// owner saves limits of their own.
	DefaultLimits quota.Limits `json:"default_limits,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  30 * time.Second,
		Retention: 90 * 24 * time.Hour,
	}
}
