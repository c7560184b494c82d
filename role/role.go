// Package role defines the closed set of mailwarden roles and their store.
package role

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/mailwarden/id"
)

// Name is one of the four fixed role names.
type Name string

const (
	// Owner is the single top-privilege role. At most one user holds it.
	Owner Name = "owner"

	// Admin manages site, webhook and email-service configuration.
	Admin Name = "admin"

	// Member is a signed-in user with a capped daily send quota.
	Member Name = "member"

	// Guest is the default for users without an assignment. Guests cannot send.
	Guest Name = "guest"
)

// ErrUnknownName is returned by ParseName for names outside the enumeration.
var ErrUnknownName = errors.New("role: unknown role name")

// legacy maps the names used by earlier releases of the web app.
var legacy = map[string]Name{
	"emperor":  Owner,
	"duke":     Admin,
	"knight":   Member,
	"civilian": Guest,
}

// All returns the role names ordered from most to least privileged.
func All() []Name { return []Name{Owner, Admin, Member, Guest} }

// ParseName resolves s case-insensitively. Legacy names are accepted.
func ParseName(s string) (Name, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	switch Name(n) {
	case Owner, Admin, Member, Guest:
		return Name(n), nil
	}
	if mapped, ok := legacy[n]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownName, s)
}

// Valid reports whether n is one of the four role names.
func (n Name) Valid() bool {
	switch n {
	case Owner, Admin, Member, Guest:
		return true
	}
	return false
}

// Rank orders roles by privilege. Higher is more privileged; unknown is -1.
func (n Name) Rank() int {
	switch n {
	case Owner:
		return 3
	case Admin:
		return 2
	case Member:
		return 1
	case Guest:
		return 0
	}
	return -1
}

// Description is the label stored when a role row is created lazily.
func (n Name) Description() string {
	switch n {
	case Owner:
		return "Owner"
	case Admin:
		return "Admin"
	case Member:
		return "Member"
	case Guest:
		return "Guest"
	}
	return ""
}

// Exclusive reports whether the role may have at most one holder.
func (n Name) Exclusive() bool { return n == Owner }

func (n Name) String() string { return string(n) }

// Role is a persisted role definition.
type Role struct {
	ID          id.RoleID `json:"id" db:"id"`
	Name        Name      `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// New builds an unsaved role with the default description for name.
func New(name Name, now time.Time) *Role {
	return &Role{
		ID:          id.NewRoleID(),
		Name:        name,
		Description: name.Description(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
