package assignment

import (
	"context"
)

// Store defines persistence operations for role assignments.
//
// Implementations keep a unique user_id and allow at most one exclusive
// assignment system-wide. A returned error means nothing was committed.
type Store interface {
	// GetUserAssignment returns the user's current assignment.
	GetUserAssignment(ctx context.Context, userID string) (*Assignment, error)

	// SetUserRole replaces the user's assignment with a in one atomic step.
	// It fails with ErrExclusiveHeld if the current assignment is exclusive.
	SetUserRole(ctx context.Context, a *Assignment) error

	// ClaimExclusiveRole assigns the exclusive role in a to a.UserID when no
	// user holds it. Otherwise it returns the current holder and false.
	ClaimExclusiveRole(ctx context.Context, a *Assignment) (holder *Assignment, claimed bool, err error)

	// GetExclusiveHolder returns the assignment of the exclusive role.
	GetExclusiveHolder(ctx context.Context) (*Assignment, error)

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// CountAssignments returns the number of assignments matching the filter.
	CountAssignments(ctx context.Context, filter *ListFilter) (int64, error)
}
