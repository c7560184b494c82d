package mailwarden

import (
	"log/slog"
	"time"

	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/plugin"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithQuotaStore keeps daily quota rows in a separate store, such as Redis.
// Defaults to the composite store.
func WithQuotaStore(q quota.Store) Option { return func(e *Engine) { e.quotas = q } }

// WithCache sets the configuration snapshot cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithClock sets the time source. Quota days are derived from it.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithCapabilities replaces the role → capability table.
func WithCapabilities(t permission.Table) Option { return func(e *Engine) { e.capabilities = t } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
