// Package assignment defines the user→role binding and its store.
//
// A user has at most one assignment. Assignments for exclusive roles (the
// owner) are created only through ClaimExclusiveRole and are never replaced
// by SetUserRole.
package assignment

import (
	"errors"
	"time"

	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/role"
)

// ErrExclusiveHeld is returned by SetUserRole when the user's current
// assignment is for an exclusive role and may not be replaced.
var ErrExclusiveHeld = errors.New("assignment: user holds an exclusive role")

// Assignment binds one user to one role.
type Assignment struct {
	ID        id.AssignmentID `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	RoleID    id.RoleID       `json:"role_id" db:"role_id"`
	RoleName  role.Name       `json:"role" db:"role_name"`
	Exclusive bool            `json:"exclusive" db:"exclusive"`
	GrantedBy string          `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// For builds an unsaved assignment of r to userID.
func For(userID string, r *role.Role, grantedBy string, now time.Time) *Assignment {
	return &Assignment{
		ID:        id.NewAssignmentID(),
		UserID:    userID,
		RoleID:    r.ID,
		RoleName:  r.Name,
		Exclusive: r.Name.Exclusive(),
		GrantedBy: grantedBy,
		CreatedAt: now,
	}
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	RoleName role.Name `json:"role,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}
