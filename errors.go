package mailwarden

import (
	"errors"

	"github.com/xraph/mailwarden/quota"
)

var (
	// ErrInvalidRole is returned for role names outside owner, admin,
	// member and guest.
	ErrInvalidRole = errors.New("mailwarden: invalid role")

	// ErrOwnerAlreadyExists is returned when another user already holds the
	// owner role.
	ErrOwnerAlreadyExists = errors.New("mailwarden: owner already exists")

	// ErrProtectedTransition is returned when a change would demote the
	// current owner, or when the ordinary promotion path is asked to grant
	// ownership.
	ErrProtectedTransition = errors.New("mailwarden: cannot change the owner's role")

	// ErrAccessDenied is returned by Enforce and Promote when the actor
	// lacks the required capability.
	ErrAccessDenied = errors.New("mailwarden: access denied")

	// ErrInvalidLimit is returned by SetRoleLimits for values below -1.
	ErrInvalidLimit = quota.ErrInvalidLimit

	// ErrConfigConflict is returned when the email-service configuration
	// changed since it was read.
	ErrConfigConflict = errors.New("mailwarden: configuration changed concurrently")

	// ErrPersistence is returned for infrastructure failures. The cause is
	// logged, not returned. Reads may be retried; a failed write did not
	// commit.
	ErrPersistence = errors.New("mailwarden: temporary storage failure, try again")
)

// Denial reasons carried by SendDecision.
const (
	ReasonLimitReached  = quota.ReasonLimitReached
	ReasonRoleForbidden = quota.ReasonRoleForbidden
)

// IsRetryable reports whether err is a transient failure worth retrying, as
// opposed to a policy rejection.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrConfigConflict)
}
