// Package extension provides a Forge extension entry point for mailwarden.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/api"
	"github.com/xraph/mailwarden/cache"
	"github.com/xraph/mailwarden/plugin"
	"github.com/xraph/mailwarden/store"
	"github.com/xraph/mailwarden/store/mongo"
	"github.com/xraph/mailwarden/store/postgres"
	redisstore "github.com/xraph/mailwarden/store/redis"
	"github.com/xraph/mailwarden/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "mailwarden"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Role-based authorization and daily send quotas for the temp-email app"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts mailwarden as a Forge extension.
type Extension struct {
	config     Config
	eng        *mailwarden.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      store.Store
	quotas     *redisstore.Store
	engineOpts []mailwarden.Option
	plugins    []plugin.Plugin
}

// New creates a mailwarden Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying engine.
func (e *Extension) Engine() *mailwarden.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*mailwarden.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("mailwarden: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	s, err := e.resolveStore(fapp)
	if err != nil {
		return err
	}

	cfg := mailwarden.DefaultConfig()
	cfg.CacheTTL = e.config.CacheTTL
	cfg.AuditChecks = e.config.AuditChecks
	cfg.Retention = e.config.Retention
	cfg.PurgeInterval = e.config.PurgeInterval
	cfg.DefaultLimits = e.config.DefaultLimits

	opts := make([]mailwarden.Option, 0, len(e.engineOpts)+len(e.plugins)+4)
	opts = append(opts,
		mailwarden.WithLogger(logger),
		mailwarden.WithStore(s),
		mailwarden.WithConfig(cfg),
	)
	if cfg.CacheTTL > 0 {
		opts = append(opts, mailwarden.WithCache(cache.NewMemory(cache.WithTTL(cfg.CacheTTL))))
	}

	if e.config.RedisURL != "" {
		q, err := redisstore.Open(context.Background(), e.config.RedisURL, redisstore.WithRetention(cfg.Retention))
		if err != nil {
			return fmt.Errorf("mailwarden: open redis quota store: %w", err)
		}
		e.quotas = q
		opts = append(opts, mailwarden.WithQuotaStore(q))
	}

	// User-provided options may override any of the above.
	opts = append(opts, e.engineOpts...)
	for _, x := range e.plugins {
		opts = append(opts, mailwarden.WithPlugin(x))
	}

	eng, err := mailwarden.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("mailwarden: create engine: %w", err)
	}
	e.eng = eng

	e.apiHandler = api.New(eng, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("mailwarden: register routes: %w", err)
		}
	}

	return nil
}

// resolveStore picks the option-provided store, then a store.Store from the
// DI container, then a grove.DB from the container wrapped by GroveDriver.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		return s, nil
	}
	if e.config.GroveDriver == "" {
		return nil, errors.New("mailwarden: no store configured")
	}

	db, err := forge.Inject[*grove.DB](fapp.Container())
	if err != nil {
		return nil, fmt.Errorf("mailwarden: resolve grove database: %w", err)
	}
	switch e.config.GroveDriver {
	case "sqlite":
		return sqlite.New(db), nil
	case "postgres", "pg":
		return postgres.New(db), nil
	case "mongo", "mongodb":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("mailwarden: unknown grove driver %q", e.config.GroveDriver)
	}
}

// Start runs migrations if enabled, then starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("mailwarden: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("mailwarden: migration failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine and closes the Redis client.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	err := e.eng.Stop(ctx)
	if e.quotas != nil {
		err = errors.Join(err, e.quotas.Close())
	}
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("mailwarden: extension not initialized")
	}
	if err := e.eng.Store().Ping(ctx); err != nil {
		return err
	}
	if e.quotas != nil {
		return e.quotas.Ping(ctx)
	}
	return nil
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all mailwarden API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
