// Package plugin defines the plugin system for mailwarden.
// Plugins are notified of role changes, authorization decisions, send checks
// and configuration updates and can react to them (logging, metrics,
// notifications).
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a non-owner role assignment commits.
// previous is the role the user held before, guest if none.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment, previous role.Name) error
}

// OwnerClaimed is called once, after the owner role is first claimed.
type OwnerClaimed interface {
	OnOwnerClaimed(ctx context.Context, a *assignment.Assignment) error
}

// ──────────────────────────────────────────────────
// Decision hooks
// ──────────────────────────────────────────────────

// AfterAuthorize is called after every capability check.
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, userID string, r role.Name, c permission.Capability, allowed bool) error
}

// AfterSendCheck is called after every send quota check.
type AfterSendCheck interface {
	OnAfterSendCheck(ctx context.Context, userID string, d *quota.Decision) error
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// LimitsUpdated is called after the role limits change.
type LimitsUpdated interface {
	OnLimitsUpdated(ctx context.Context, limits quota.Limits) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
