package permission_test

import (
	"testing"

	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/role"
)

func TestHasCapabilityDefaults(t *testing.T) {
	tests := []struct {
		role role.Name
		cap  permission.Capability
		want bool
	}{
		{role.Owner, permission.ManageWebhook, true},
		{role.Owner, permission.PromoteUser, true},
		{role.Owner, permission.AssignOwner, true},
		{role.Admin, permission.ManageWebhook, true},
		{role.Admin, permission.ManageSiteConfig, true},
		{role.Admin, permission.ManageEmailService, true},
		{role.Admin, permission.IssueAPIKey, true},
		{role.Admin, permission.PromoteUser, true},
		{role.Admin, permission.AssignOwner, false},
		{role.Member, permission.ManageWebhook, false},
		{role.Member, permission.PromoteUser, false},
		{role.Guest, permission.IssueAPIKey, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			if got := permission.HasCapability(tt.role, tt.cap); got != tt.want {
				t.Errorf("HasCapability(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
			}
		})
	}
}

func TestUnknownFailsClosed(t *testing.T) {
	if permission.HasCapability(role.Owner, "mailbox:delete_everything") {
		t.Error("owner wildcard must not grant unknown capabilities")
	}
	if permission.HasCapability("superuser", permission.ManageWebhook) {
		t.Error("unknown role must not be granted anything")
	}
}

func TestResourceWildcard(t *testing.T) {
	table := permission.Table{role.Member: {"webhook:*"}}
	if !table.Has(role.Member, permission.ManageWebhook) {
		t.Error("expected webhook:* to match webhook:manage")
	}
	if table.Has(role.Member, permission.ManageSiteConfig) {
		t.Error("webhook:* must not match site_config:manage")
	}
}

func TestCapabilities(t *testing.T) {
	if got := permission.DefaultTable().Capabilities(role.Member); len(got) != 0 {
		t.Errorf("member capabilities = %v, want none", got)
	}
	if got := permission.DefaultTable().Capabilities(role.Owner); len(got) != len(permission.All()) {
		t.Errorf("owner capabilities = %v, want all", got)
	}
}
