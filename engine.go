package mailwarden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/plugin"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/store"
)

// Engine is the single entry point for authorization decisions. It owns the
// role assignment rules, resolves capabilities, runs the quota ledger and
// serves the owner-editable configuration.
type Engine struct {
	store        store.Store
	quotas       quota.Store
	ledger       *quota.Ledger
	capabilities permission.Table
	cache        Cache
	plugins      *plugin.Registry
	logger       *slog.Logger
	config       Config
	now          func() time.Time

	// configMu serializes configuration writes within the process.
	configMu sync.Mutex

	stopMu    sync.Mutex
	stopPurge context.CancelFunc
	purgeDone chan struct{}
}

// NewEngine creates a new engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		capabilities: permission.DefaultTable(),
		logger:       slog.Default(),
		config:       DefaultConfig(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("mailwarden: store is required")
	}
	if e.quotas == nil {
		e.quotas = e.store
	}
	if e.plugins == nil {
		e.plugins = plugin.NewRegistry(e.logger)
	}
	e.ledger = quota.NewLedger(e.quotas, e.roleLimits, e.now)
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start loads the configuration snapshot and starts the purge loop when
// configured.
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.emailService(ctx); err != nil {
		return e.persistenceError(ctx, "load email service config", err)
	}
	if e.config.PurgeInterval > 0 && e.config.Retention > 0 {
		e.startPurgeLoop()
	}
	return nil
}

// Stop halts the purge loop and notifies plugins.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopMu.Lock()
	cancel, done := e.stopPurge, e.purgeDone
	e.stopPurge, e.purgeDone = nil, nil
	e.stopMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.plugins.EmitShutdown(ctx)
	return nil
}

// PurgeResult reports how many rows Purge removed.
type PurgeResult struct {
	DailyQuotas int64 `json:"daily_quotas"`
	CheckLogs   int64 `json:"check_logs"`
}

// Purge removes quota rows and check logs older than Config.Retention.
func (e *Engine) Purge(ctx context.Context) (*PurgeResult, error) {
	if e.config.Retention <= 0 {
		return &PurgeResult{}, nil
	}
	cutoff := e.now().Add(-e.config.Retention)

	res := &PurgeResult{}
	var err error
	if res.DailyQuotas, err = e.quotas.PurgeDailyQuotas(ctx, quota.Day(cutoff)); err != nil {
		return nil, e.persistenceError(ctx, "purge daily quotas", err)
	}
	if res.CheckLogs, err = e.store.PurgeCheckLogs(ctx, cutoff); err != nil {
		return nil, e.persistenceError(ctx, "purge check logs", err)
	}
	e.logger.InfoContext(ctx, "mailwarden: purged old records",
		slog.Int64("daily_quotas", res.DailyQuotas),
		slog.Int64("check_logs", res.CheckLogs),
	)
	return res, nil
}

func (e *Engine) startPurgeLoop() {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	if e.stopPurge != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.stopPurge, e.purgeDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(e.config.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Failures are already logged by Purge.
				_, _ = e.Purge(ctx) //nolint:errcheck // retried on the next tick
			}
		}
	}()
}

// persistenceError logs the storage failure and returns the generic
// ErrPersistence so callers never see backend details.
func (e *Engine) persistenceError(ctx context.Context, op string, err error) error {
	e.logger.ErrorContext(ctx, "mailwarden: storage failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}
