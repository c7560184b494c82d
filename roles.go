package mailwarden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/store"
)

// AssignRole is the only way role assignments change.
//
// Assigning owner succeeds when nobody holds it, is a no-op when the target
// already holds it, and otherwise fails with ErrOwnerAlreadyExists.
// Assigning admin, member or guest fails with ErrProtectedTransition when the
// target is the owner. Any other name fails with ErrInvalidRole.
//
// AssignRole does not check the actor's capabilities; Promote does.
func (e *Engine) AssignRole(ctx context.Context, actorID, targetUserID string, name role.Name) (*AssignResult, error) {
	n, err := role.ParseName(string(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, name)
	}

	var res *AssignResult
	if n == role.Owner {
		res, err = e.assignOwner(ctx, actorID, targetUserID)
	} else {
		res, err = e.assignOrdinary(ctx, actorID, targetUserID, n)
	}

	if e.config.AuditChecks {
		entry := &checklog.Entry{
			Kind:     checklog.KindAssign,
			ActorID:  actorID,
			TargetID: targetUserID,
			Action:   string(n),
			Allowed:  err == nil,
		}
		if err != nil {
			entry.Reason = err.Error()
		}
		e.audit(ctx, entry)
	}
	return res, err
}

// ClaimOwnership makes user the owner if nobody is. It is the bootstrap
// path for the first owner and is safe to repeat.
func (e *Engine) ClaimOwnership(ctx context.Context, user User) (*AssignResult, error) {
	return e.AssignRole(ctx, user.ID, user.ID, role.Owner)
}

// Promote changes targetUserID's role on behalf of actor. The actor needs
// the user:promote capability. Ownership can never be granted here,
// whatever the capability table says.
func (e *Engine) Promote(ctx context.Context, actor User, targetUserID string, name role.Name) (*AssignResult, error) {
	n, err := role.ParseName(string(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, name)
	}
	if n == role.Owner {
		return nil, fmt.Errorf("%w: ownership is not granted by promotion", ErrProtectedTransition)
	}
	if err := e.Enforce(ctx, actor, permission.PromoteUser); err != nil {
		return nil, err
	}
	return e.AssignRole(ctx, actor.ID, targetUserID, n)
}

// GetUserRole returns the user's current role, guest if unassigned.
func (e *Engine) GetUserRole(ctx context.Context, userID string) (role.Name, error) {
	return e.roleOf(ctx, userID)
}

// Owner returns the current owner's user ID, or "" if there is none.
func (e *Engine) Owner(ctx context.Context) (string, error) {
	holder, err := e.store.GetExclusiveHolder(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", e.persistenceError(ctx, "get owner", err)
	}
	return holder.UserID, nil
}

// GetRole returns a stored role row. A missing role wraps store.ErrNotFound.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, e.persistenceError(ctx, "get role", err)
	}
	return r, nil
}

// ListAssignments lists stored assignments.
func (e *Engine) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	list, err := e.store.ListAssignments(ctx, filter)
	if err != nil {
		return nil, e.persistenceError(ctx, "list assignments", err)
	}
	return list, nil
}

func (e *Engine) assignOwner(ctx context.Context, actorID, targetUserID string) (*AssignResult, error) {
	previous, err := e.roleOf(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	r, err := e.ensureRole(ctx, role.Owner)
	if err != nil {
		return nil, err
	}

	a := assignment.For(targetUserID, r, actorID, e.now().UTC())
	holder, claimed, err := e.store.ClaimExclusiveRole(ctx, a)
	if err != nil {
		return nil, e.persistenceError(ctx, "claim owner", err)
	}

	res := &AssignResult{UserID: targetUserID, Role: role.Owner, Previous: previous}
	switch {
	case claimed:
		res.Outcome, res.Changed = OutcomeAssigned, true
		e.logger.InfoContext(ctx, "mailwarden: owner claimed", slog.String("user_id", targetUserID))
		e.plugins.EmitOwnerClaimed(ctx, holder)
		return res, nil
	case holder.UserID == targetUserID:
		res.Outcome, res.Previous = OutcomeAlreadyOwner, role.Owner
		return res, nil
	default:
		return nil, ErrOwnerAlreadyExists
	}
}

func (e *Engine) assignOrdinary(ctx context.Context, actorID, targetUserID string, n role.Name) (*AssignResult, error) {
	previous, err := e.roleOf(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if previous == role.Owner {
		return nil, ErrProtectedTransition
	}
	r, err := e.ensureRole(ctx, n)
	if err != nil {
		return nil, err
	}

	a := assignment.For(targetUserID, r, actorID, e.now().UTC())
	if err := e.store.SetUserRole(ctx, a); err != nil {
		if errors.Is(err, assignment.ErrExclusiveHeld) {
			// The target became owner after the read above.
			return nil, ErrProtectedTransition
		}
		return nil, e.persistenceError(ctx, "set user role", err)
	}

	e.logger.InfoContext(ctx, "mailwarden: role assigned",
		slog.String("user_id", targetUserID),
		slog.String("role", string(n)),
		slog.String("previous", string(previous)),
		slog.String("granted_by", actorID),
	)
	e.plugins.EmitRoleAssigned(ctx, a, previous)

	return &AssignResult{
		UserID:   targetUserID,
		Role:     n,
		Previous: previous,
		Outcome:  OutcomeAssigned,
		Changed:  previous != n,
	}, nil
}

// roleOf resolves a user's role. No assignment means guest. A stored name
// outside the enumeration is treated as guest.
func (e *Engine) roleOf(ctx context.Context, userID string) (role.Name, error) {
	a, err := e.store.GetUserAssignment(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return role.Guest, nil
	}
	if err != nil {
		return "", e.persistenceError(ctx, "get user role", err)
	}
	if !a.RoleName.Valid() {
		e.logger.WarnContext(ctx, "mailwarden: unknown stored role, using guest",
			slog.String("user_id", userID),
			slog.String("role", string(a.RoleName)),
		)
		return role.Guest, nil
	}
	return a.RoleName, nil
}

func (e *Engine) ensureRole(ctx context.Context, n role.Name) (*role.Role, error) {
	r, err := e.store.UpsertRole(ctx, role.New(n, e.now().UTC()))
	if err != nil {
		return nil, e.persistenceError(ctx, "upsert role", err)
	}
	return r, nil
}
