package mailwarden

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/settings"
)

const emailServiceKey = "email_service"

// maxConfigAttempts bounds retries of a configuration write that lost a
// version race to another process.
const maxConfigAttempts = 3

// EmailServiceUpdate changes parts of the email-service configuration.
// Nil fields are left alone. RoleLimits entries are merged; entries for the
// owner and guest are ignored.
type EmailServiceUpdate struct {
	Enabled    *bool        `json:"enabled,omitempty"`
	APIKey     *string      `json:"api_key,omitempty"`
	RoleLimits quota.Limits `json:"role_limits,omitempty"`

	// Version, when set, must equal the stored version or the update fails
	// with ErrConfigConflict.
	Version *int64 `json:"version,omitempty"`
}

// GetEmailService returns the current email-service configuration.
func (e *Engine) GetEmailService(ctx context.Context) (*settings.EmailService, error) {
	cfg, err := e.emailService(ctx)
	if err != nil {
		return nil, e.persistenceError(ctx, "get email service config", err)
	}
	return cfg.Clone(), nil
}

// SendingEnabled reports the email-service switch. The send pipeline checks
// it as part of validating a message; AuthorizeSend does not consult it.
func (e *Engine) SendingEnabled(ctx context.Context) (bool, error) {
	cfg, err := e.emailService(ctx)
	if err != nil {
		return false, e.persistenceError(ctx, "get email service config", err)
	}
	return cfg.Enabled, nil
}

// GetRoleLimits returns the admin and member daily limits.
func (e *Engine) GetRoleLimits(ctx context.Context) (quota.Limits, error) {
	l, err := e.roleLimits(ctx)
	if err != nil {
		return nil, e.persistenceError(ctx, "get role limits", err)
	}
	return l, nil
}

// SetRoleLimits merges limits into the stored admin and member limits and
// returns the result. Owner and guest entries are ignored. Values below -1
// fail with ErrInvalidLimit.
func (e *Engine) SetRoleLimits(ctx context.Context, limits quota.Limits) (quota.Limits, error) {
	cfg, err := e.UpdateEmailService(ctx, EmailServiceUpdate{RoleLimits: limits}, "")
	if err != nil {
		return nil, err
	}
	return cfg.RoleLimits, nil
}

// UpdateEmailService applies u and returns the saved configuration. Writes
// are serialized and invalidate the cached snapshot once committed.
func (e *Engine) UpdateEmailService(ctx context.Context, u EmailServiceUpdate, updatedBy string) (*settings.EmailService, error) {
	if _, err := quota.DefaultLimits().Merge(u.RoleLimits); err != nil {
		return nil, err
	}

	e.configMu.Lock()
	defer e.configMu.Unlock()

	for attempt := 1; ; attempt++ {
		current, err := e.store.GetEmailService(ctx)
		if err != nil {
			return nil, e.persistenceError(ctx, "get email service config", err)
		}
		if u.Version != nil && *u.Version != current.Version {
			return nil, ErrConfigConflict
		}

		next := e.withDefaults(current).Clone()
		next.RoleLimits, _ = next.RoleLimits.Merge(u.RoleLimits) //nolint:errcheck // validated above
		if u.Enabled != nil {
			next.Enabled = *u.Enabled
		}
		if u.APIKey != nil {
			next.APIKey = *u.APIKey
		}
		next.UpdatedBy = updatedBy
		next.UpdatedAt = e.now().UTC()

		err = e.store.SaveEmailService(ctx, next)
		if errors.Is(err, settings.ErrVersionConflict) {
			if u.Version != nil || attempt >= maxConfigAttempts {
				return nil, ErrConfigConflict
			}
			continue
		}
		if err != nil {
			return nil, e.persistenceError(ctx, "save email service config", err)
		}

		if e.cache != nil {
			e.cache.Invalidate(ctx, emailServiceKey)
		}
		e.logger.InfoContext(ctx, "mailwarden: email service config updated",
			slog.Int64("version", next.Version),
			slog.Any("role_limits", next.RoleLimits),
			slog.Bool("enabled", next.Enabled),
		)
		if u.RoleLimits != nil {
			e.plugins.EmitLimitsUpdated(ctx, next.RoleLimits)
		}
		return next.Clone(), nil
	}
}

// roleLimits is the ledger's limit source.
func (e *Engine) roleLimits(ctx context.Context) (quota.Limits, error) {
	cfg, err := e.emailService(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.RoleLimits.Sanitized(), nil
}

// emailService returns the configuration snapshot, from the cache when
// possible. The returned value must not be modified.
func (e *Engine) emailService(ctx context.Context) (*settings.EmailService, error) {
	if e.cache != nil {
		if cfg, ok := e.cache.Get(ctx, emailServiceKey); ok {
			return cfg, nil
		}
	}
	cfg, err := e.store.GetEmailService(ctx)
	if err != nil {
		return nil, err
	}
	cfg = e.withDefaults(cfg)
	if e.cache != nil {
		e.cache.Set(ctx, emailServiceKey, cfg)
	}
	return cfg, nil
}

// withDefaults applies Config.DefaultLimits to a never-saved configuration.
func (e *Engine) withDefaults(cfg *settings.EmailService) *settings.EmailService {
	if cfg.Version != 0 || len(e.config.DefaultLimits) == 0 {
		return cfg
	}
	out := cfg.Clone()
	merged, err := out.RoleLimits.Merge(e.config.DefaultLimits)
	if err != nil {
		e.logger.Warn("mailwarden: ignoring invalid default limits", slog.String("error", err.Error()))
		return cfg
	}
	out.RoleLimits = merged
	return out
}
