package extension

import (
	"time"

	"github.com/xraph/mailwarden/quota"
)

// Config holds the mailwarden extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.mailwarden" or "mailwarden" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// GroveDriver selects the store built from a grove.DB registered in the
	// DI container: "sqlite", "postgres" or "mongo". Ignored when a
	// store.Store is provided directly.
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RedisURL, when set, keeps daily quota counters in Redis instead of the
	// composite store.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url"`

	// CacheTTL is how long the email-service configuration is cached.
	// Zero disables the cache.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// AuditChecks records every decision in the check log.
	AuditChecks bool `json:"audit_checks" mapstructure:"audit_checks" yaml:"audit_checks"`

	// Retention is how long quota rows and check logs are kept.
	Retention time.Duration `json:"retention" mapstructure:"retention" yaml:"retention"`

	// DefaultLimits replaces the built-in admin and member daily limits
	// until an owner saves limits of their own.
	DefaultLimits quota.Limits `json:"default_limits" mapstructure:"default_limits" yaml:"default_limits"`

	// PurgeInterval runs the retention purge in the background.
	PurgeInterval time.Duration `json:"purge_interval" mapstructure:"purge_interval" yaml:"purge_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:      30 * time.Second,
		Retention:     90 * 24 * time.Hour,
		PurgeInterval: time.Hour,
	}
}
