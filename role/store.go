package role

import (
	"context"

	"github.com/xraph/mailwarden/id"
)

// Store defines persistence operations for role definitions.
type Store interface {
	// UpsertRole returns the stored role with r.Name, creating it from r when
	// missing. Concurrent calls for one name converge on a single row.
	UpsertRole(ctx context.Context, r *Role) (*Role, error)

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by name.
	GetRoleByName(ctx context.Context, name Name) (*Role, error)

	// ListRoles returns every stored role.
	ListRoles(ctx context.Context) ([]*Role, error)
}
