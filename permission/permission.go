// Package permission resolves roles to capabilities.
//
// The role → capability mapping is a static table recomputed from the role
// name on every check. Nothing here is stored per user and nothing does I/O.
package permission

import (
	"github.com/xraph/mailwarden/role"
)

// Capability names one protected action, in "resource:action" form.
type Capability string

// Known capabilities.
const (
	ManageWebhook      Capability = "webhook:manage"
	ManageSiteConfig   Capability = "site_config:manage"
	ManageEmailService Capability = "email_service:manage"
	IssueAPIKey        Capability = "apikey:issue"
	PromoteUser        Capability = "user:promote"

	// AssignOwner guards the owner bootstrap path. The engine gates that path
	// on its own and never consults the table for it.
	AssignOwner Capability = "role:assign_owner"
)

var known = map[Capability]struct{}{
	ManageWebhook:      {},
	ManageSiteConfig:   {},
	ManageEmailService: {},
	IssueAPIKey:        {},
	PromoteUser:        {},
	AssignOwner:        {},
}

// All returns every known capability.
func All() []Capability {
	return []Capability{ManageWebhook, ManageSiteConfig, ManageEmailService, IssueAPIKey, PromoteUser, AssignOwner}
}

// Known reports whether c is a recognized capability name.
func (c Capability) Known() bool {
	_, ok := known[c]
	return ok
}

// Table maps a role to capability patterns. A pattern is a capability name,
// "resource:*", or "*".
type Table map[role.Name][]string

// DefaultTable returns the built-in mapping.
func DefaultTable() Table {
	return Table{
		role.Owner: {"*"},
		role.Admin: {
			string(ManageWebhook),
			string(ManageSiteConfig),
			string(ManageEmailService),
			string(IssueAPIKey),
			string(PromoteUser),
		},
		role.Member: nil,
		role.Guest:  nil,
	}
}

// Has reports whether r is granted c by the table. Unknown roles and
// unknown capabilities are denied.
func (t Table) Has(r role.Name, c Capability) bool {
	if !c.Known() || !r.Valid() {
		return false
	}
	for _, pattern := range t[r] {
		if matchCapability(pattern, string(c)) {
			return true
		}
	}
	return false
}

// Capabilities lists the known capabilities granted to r.
func (t Table) Capabilities(r role.Name) []Capability {
	var out []Capability
	for _, c := range All() {
		if t.Has(r, c) {
			out = append(out, c)
		}
	}
	return out
}

var defaultTable = DefaultTable()

// HasCapability reports whether the built-in table grants c to r.
func HasCapability(r role.Name, c Capability) bool {
	return defaultTable.Has(r, c)
}
