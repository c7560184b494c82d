package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

// Named entry types pair a hook with the plugin name for logging.

type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type ownerClaimedEntry struct {
	name string
	hook OwnerClaimed
}
type afterAuthorizeEntry struct {
	name string
	hook AfterAuthorize
}
type afterSendCheckEntry struct {
	name string
	hook AfterSendCheck
}
type limitsUpdatedEntry struct {
	name string
	hook LimitsUpdated
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// Hooks are type-cached at registration so emit calls only visit plugins
// implementing them.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	roleAssigned   []roleAssignedEntry
	ownerClaimed   []ownerClaimedEntry
	afterAuthorize []afterAuthorizeEntry
	afterSendCheck []afterSendCheckEntry
	limitsUpdated  []limitsUpdatedEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(OwnerClaimed); ok {
		r.ownerClaimed = append(r.ownerClaimed, ownerClaimedEntry{name, h})
	}
	if h, ok := p.(AfterAuthorize); ok {
		r.afterAuthorize = append(r.afterAuthorize, afterAuthorizeEntry{name, h})
	}
	if h, ok := p.(AfterSendCheck); ok {
		r.afterSendCheck = append(r.afterSendCheck, afterSendCheckEntry{name, h})
	}
	if h, ok := p.(LimitsUpdated); ok {
		r.limitsUpdated = append(r.limitsUpdated, limitsUpdatedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment, previous role.Name) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a, previous); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitOwnerClaimed notifies all plugins that implement OwnerClaimed.
func (r *Registry) EmitOwnerClaimed(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.ownerClaimed {
		if err := e.hook.OnOwnerClaimed(ctx, a); err != nil {
			r.logHookError("OnOwnerClaimed", e.name, err)
		}
	}
}

// EmitAfterAuthorize notifies all plugins that implement AfterAuthorize.
func (r *Registry) EmitAfterAuthorize(ctx context.Context, userID string, rl role.Name, c permission.Capability, allowed bool) {
	for _, e := range r.afterAuthorize {
		if err := e.hook.OnAfterAuthorize(ctx, userID, rl, c, allowed); err != nil {
			r.logHookError("OnAfterAuthorize", e.name, err)
		}
	}
}

// EmitAfterSendCheck notifies all plugins that implement AfterSendCheck.
func (r *Registry) EmitAfterSendCheck(ctx context.Context, userID string, d *quota.Decision) {
	for _, e := range r.afterSendCheck {
		if err := e.hook.OnAfterSendCheck(ctx, userID, d); err != nil {
			r.logHookError("OnAfterSendCheck", e.name, err)
		}
	}
}

// EmitLimitsUpdated notifies all plugins that implement LimitsUpdated.
func (r *Registry) EmitLimitsUpdated(ctx context.Context, limits quota.Limits) {
	for _, e := range r.limitsUpdated {
		if err := e.hook.OnLimitsUpdated(ctx, limits); err != nil {
			r.logHookError("OnLimitsUpdated", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors never reach the caller.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
