package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/store/memory"
)

var errConnReset = errors.New("connection reset by peer")

// brokenStore fails every role lookup.
type brokenStore struct {
	*memory.Store
}

func (b *brokenStore) GetUserAssignment(context.Context, string) (*assignment.Assignment, error) {
	return nil, errConnReset
}

func engineOn(t *testing.T, broken bool) *mailwarden.Engine {
	t.Helper()
	mem := memory.New()
	var opt mailwarden.Option = mailwarden.WithStore(mem)
	if broken {
		opt = mailwarden.WithStore(&brokenStore{mem})
	}
	eng, err := mailwarden.NewEngine(opt)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestStorageFailureIsNotADenial(t *testing.T) {
	ctx := context.Background()
	eng := engineOn(t, true)
	user := mailwarden.User{ID: "a1"}
	caps := []permission.Capability{permission.ManageWebhook}

	if status, _ := checkAll(ctx, eng, user, caps); status != http.StatusServiceUnavailable {
		t.Errorf("checkAll: status = %d, want 503", status)
	}
	if status, _ := checkAny(ctx, eng, user, caps); status != http.StatusServiceUnavailable {
		t.Errorf("checkAny: status = %d, want 503", status)
	}
	if status, _ := checkSend(ctx, eng, user); status != http.StatusServiceUnavailable {
		t.Errorf("checkSend: status = %d, want 503", status)
	}
}

func TestDenialIsForbidden(t *testing.T) {
	ctx := context.Background()
	eng := engineOn(t, false)
	guest := mailwarden.User{ID: "g1"}
	caps := []permission.Capability{permission.ManageWebhook, permission.PromoteUser}

	if status, msg := checkAll(ctx, eng, guest, caps); status != http.StatusForbidden || msg != msgDenied {
		t.Errorf("checkAll: got %d %q, want 403", status, msg)
	}
	if status, _ := checkAny(ctx, eng, guest, caps); status != http.StatusForbidden {
		t.Errorf("checkAny: status = %d, want 403", status)
	}
	if status, msg := checkSend(ctx, eng, guest); status != http.StatusTooManyRequests || msg != mailwarden.ReasonRoleForbidden {
		t.Errorf("checkSend: got %d %q, want 429", status, msg)
	}
}

func TestGrantedPassesThrough(t *testing.T) {
	ctx := context.Background()
	eng := engineOn(t, false)
	if _, err := eng.AssignRole(ctx, "setup", "a1", role.Admin); err != nil {
		t.Fatal(err)
	}
	admin := mailwarden.User{ID: "a1"}

	if status, _ := checkAll(ctx, eng, admin, []permission.Capability{permission.ManageWebhook, permission.PromoteUser}); status != 0 {
		t.Errorf("checkAll: status = %d, want pass", status)
	}
	if status, _ := checkAny(ctx, eng, admin, []permission.Capability{permission.AssignOwner, permission.IssueAPIKey}); status != 0 {
		t.Errorf("checkAny: status = %d, want pass", status)
	}
	if status, _ := checkSend(ctx, eng, admin); status != 0 {
		t.Errorf("checkSend: status = %d, want pass", status)
	}
}
