package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
	"github.com/xraph/mailwarden/store"
)

func TestUpsertRoleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.UpsertRole(ctx, role.New(role.Admin, now()))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.UpsertRole(ctx, role.New(role.Admin, now()))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same role row, got %s and %s", first.ID, second.ID)
	}

	got, err := s.GetRoleByName(ctx, role.Admin)
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "Admin" {
		t.Fatalf("expected description Admin, got %q", got.Description)
	}

	if _, err := s.GetRoleByName(ctx, role.Member); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetUserRoleReplaces(t *testing.T) {
	ctx := context.Background()
	s := New()
	admin, _ := s.UpsertRole(ctx, role.New(role.Admin, now()))
	member, _ := s.UpsertRole(ctx, role.New(role.Member, now()))

	if err := s.SetUserRole(ctx, assignment.For("u1", member, "root", now())); err != nil {
		t.Fatal(err)
	}
	if err := s.SetUserRole(ctx, assignment.For("u1", admin, "root", now())); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUserAssignment(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RoleName != role.Admin {
		t.Fatalf("expected admin, got %s", got.RoleName)
	}
	n, _ := s.CountAssignments(ctx, nil)
	if n != 1 {
		t.Fatalf("expected 1 assignment, got %d", n)
	}
}

func TestSetUserRoleRefusesExclusiveHolder(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner, _ := s.UpsertRole(ctx, role.New(role.Owner, now()))
	member, _ := s.UpsertRole(ctx, role.New(role.Member, now()))

	if _, claimed, err := s.ClaimExclusiveRole(ctx, assignment.For("boss", owner, "boss", now())); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	err := s.SetUserRole(ctx, assignment.For("boss", member, "someone", now()))
	if !errors.Is(err, assignment.ErrExclusiveHeld) {
		t.Fatalf("expected ErrExclusiveHeld, got %v", err)
	}
}

func TestClaimExclusiveRoleConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner, _ := s.UpsertRole(ctx, role.New(role.Owner, now()))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "user-" + strconv.Itoa(i)
			_, claimed, err := s.ClaimExclusiveRole(ctx, assignment.For(user, owner, user, now()))
			if err != nil {
				t.Error(err)
				return
			}
			if claimed {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one claim to win, got %d", wins.Load())
	}
	holder, err := s.GetExclusiveHolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !holder.Exclusive || holder.RoleName != role.Owner {
		t.Fatalf("unexpected holder %+v", holder)
	}
}

func TestIncrementDailyQuota(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 1; i <= 2; i++ {
		q, ok, err := s.IncrementDailyQuota(ctx, "u1", "2026-10-18", 2)
		if err != nil {
			t.Fatal(err)
		}
		if !ok || q.SentCount != i {
			t.Fatalf("send %d: ok=%v count=%d", i, ok, q.SentCount)
		}
	}
	q, ok, err := s.IncrementDailyQuota(ctx, "u1", "2026-10-18", 2)
	if err != nil {
		t.Fatal(err)
	}
	if ok || q.SentCount != 2 {
		t.Fatalf("expected refusal at 2, got ok=%v count=%d", ok, q.SentCount)
	}

	next, err := s.GetDailyQuota(ctx, "u1", "2026-10-19")
	if err != nil {
		t.Fatal(err)
	}
	if next.SentCount != 0 || !next.ID.IsNil() {
		t.Fatalf("expected empty row for next day, got %+v", next)
	}
}

func TestIncrementDailyQuotaConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	const limit, attempts = 7, 50

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.IncrementDailyQuota(ctx, "u1", "2026-10-18", limit)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != limit {
		t.Fatalf("expected %d increments, got %d", limit, allowed.Load())
	}
}

func TestPurgeDailyQuotas(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, day := range []string{"2026-10-01", "2026-10-10", "2026-10-18"} {
		if _, _, err := s.IncrementDailyQuota(ctx, "u1", day, 5); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.PurgeDailyQuotas(ctx, "2026-10-10")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	rows, _ := s.ListDailyQuotas(ctx, nil)
	if len(rows) != 2 || rows[0].Day != "2026-10-18" {
		t.Fatalf("unexpected rows after purge: %+v", rows)
	}
}

func TestEmailServiceVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()

	cfg, err := s.GetEmailService(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 0 {
		t.Fatalf("expected version 0, got %d", cfg.Version)
	}

	cfg.Enabled = true
	if err := s.SaveEmailService(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1 after save, got %d", cfg.Version)
	}

	stale := settings.Default()
	if err := s.SaveEmailService(ctx, stale); !errors.Is(err, settings.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestCheckLogs(t *testing.T) {
	ctx := context.Background()
	s := New()
	old := &checklog.Entry{ID: id.NewCheckLogID(), Kind: checklog.KindSend, ActorID: "u1", CreatedAt: now().Add(-48 * time.Hour)}
	fresh := &checklog.Entry{ID: id.NewCheckLogID(), Kind: checklog.KindAuthorize, ActorID: "u1", Allowed: true, CreatedAt: now()}
	for _, e := range []*checklog.Entry{old, fresh} {
		if err := s.CreateCheckLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	allowed := true
	list, err := s.ListCheckLogs(ctx, &checklog.QueryFilter{Allowed: &allowed})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != fresh.ID {
		t.Fatalf("unexpected filter result: %+v", list)
	}

	n, err := s.PurgeCheckLogs(ctx, now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := s.GetCheckLog(ctx, old.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}
