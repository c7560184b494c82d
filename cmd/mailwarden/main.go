// Command mailwarden serves the mailwarden HTTP API as a Forge application.
//
// Roles, configuration and audit entries live in memory. Set
// MAILWARDEN_REDIS_URL to keep daily quota counters in Redis. Settings come
// from MAILWARDEN_* environment variables.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/xraph/forge"

	"github.com/xraph/mailwarden/extension"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/store/memory"
)

// Config is read from the environment at startup.
type Config struct {
	RedisURL         string        `env:"MAILWARDEN_REDIS_URL"`
	AuditChecks      bool          `env:"MAILWARDEN_AUDIT_CHECKS"       envDefault:"true"`
	CacheTTL         time.Duration `env:"MAILWARDEN_CACHE_TTL"          envDefault:"30s"`
	Retention        time.Duration `env:"MAILWARDEN_RETENTION"          envDefault:"2160h"`
	PurgeInterval    time.Duration `env:"MAILWARDEN_PURGE_INTERVAL"     envDefault:"1h"`
	AdminDailyLimit  int           `env:"MAILWARDEN_ADMIN_DAILY_LIMIT"  envDefault:"5"`
	MemberDailyLimit int           `env:"MAILWARDEN_MEMBER_DAILY_LIMIT" envDefault:"2"`
	LogLevel         string        `env:"MAILWARDEN_LOG_LEVEL"          envDefault:"info"`
}

func (c Config) extensionConfig() extension.Config {
	cfg := extension.DefaultConfig()
	cfg.RedisURL = c.RedisURL
	cfg.AuditChecks = c.AuditChecks
	cfg.CacheTTL = c.CacheTTL
	cfg.Retention = c.Retention
	cfg.PurgeInterval = c.PurgeInterval
	cfg.DefaultLimits = quota.Limits{
		role.Admin:  quota.Limit(c.AdminDailyLimit),
		role.Member: quota.Limit(c.MemberDailyLimit),
	}
	return cfg
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("invalid MAILWARDEN_LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := forge.New(
		forge.WithExtensions(
			extension.New(
				extension.WithStore(memory.New()),
				extension.WithConfig(cfg.extensionConfig()),
				extension.WithLogger(logger),
			),
		),
	)

	if err := app.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
