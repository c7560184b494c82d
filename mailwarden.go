// Package mailwarden is the authorization and quota engine of a temporary
// email service.
//
// Users hold one of four roles (owner > admin > member > guest). The owner
// role has at most one holder and cannot be taken away through the ordinary
// promotion path. Roles map to capabilities through a static table, and each
// role has a daily send quota that is checked and consumed atomically.
//
//	eng, err := mailwarden.NewEngine(
//	    mailwarden.WithStore(memory.New()),
//	)
//	_, err = eng.ClaimOwnership(ctx, mailwarden.User{ID: "u_1"})
//	ok, err := eng.Authorize(ctx, user, permission.ManageWebhook)
//	decision, err := eng.AuthorizeSend(ctx, user)
package mailwarden

import (
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

// ID is the identifier type for persisted records.
type ID = id.ID

// Role is a role name.
type Role = role.Name

// Capability names a protected action.
type Capability = permission.Capability

// User is an authenticated identity supplied by the sign-in layer. It is
// trusted as given.
type User struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Username    string   `json:"username,omitempty"`
	Providers   []string `json:"providers,omitempty"`
}

// SendDecision is the result of AuthorizeSend. A denial is a normal result,
// not an error.
type SendDecision struct {
	Allowed bool        `json:"allowed"`
	Reason  string      `json:"reason,omitempty"`
	Role    role.Name   `json:"role"`
	Limit   quota.Limit `json:"limit"`
	Used    int         `json:"used"`
}

// AssignOutcome says what an assignment did.
type AssignOutcome string

const (
	// OutcomeAssigned means the role was written.
	OutcomeAssigned AssignOutcome = "assigned"

	// OutcomeAlreadyOwner means the target already was the owner.
	OutcomeAlreadyOwner AssignOutcome = "already_owner"
)

// AssignResult describes a successful role assignment.
type AssignResult struct {
	UserID   string        `json:"user_id"`
	Role     role.Name     `json:"role"`
	Previous role.Name     `json:"previous"`
	Outcome  AssignOutcome `json:"outcome"`
	// Changed is false when the user already held the role.
	Changed bool `json:"changed"`
}
