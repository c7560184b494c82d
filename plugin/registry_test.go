package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

// testPlugin implements Plugin + RoleAssigned + AfterSendCheck.
type testPlugin struct {
	assignedPrevious role.Name
	sendChecks       int
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleAssigned(_ context.Context, _ *assignment.Assignment, previous role.Name) error {
	t.assignedPrevious = previous
	return nil
}

func (t *testPlugin) OnAfterSendCheck(_ context.Context, _ string, _ *quota.Decision) error {
	t.sendChecks++
	return errors.New("metrics sink unavailable")
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRoleAssigned(ctx, &assignment.Assignment{ID: id.NewAssignmentID(), UserID: "u1", RoleName: role.Admin}, role.Member)
	if tp.assignedPrevious != role.Member {
		t.Fatalf("expected previous member, got %q", tp.assignedPrevious)
	}

	// A failing hook is logged and does not stop dispatch.
	reg.EmitAfterSendCheck(ctx, "u1", &quota.Decision{Allowed: true})
	reg.EmitAfterSendCheck(ctx, "u1", &quota.Decision{Allowed: false})
	if tp.sendChecks != 2 {
		t.Fatalf("expected 2 send checks, got %d", tp.sendChecks)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitOwnerClaimed(ctx, &assignment.Assignment{UserID: "u1"})
	reg.EmitLimitsUpdated(ctx, quota.DefaultLimits())
	reg.EmitShutdown(ctx)
}
