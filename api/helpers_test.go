package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/store"
)

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Fatal("nil should map to nil")
	}

	persist := fmt.Errorf("%w: increment quota", mailwarden.ErrPersistence)
	if got := mapError(persist); got != persist {
		t.Fatalf("persistence errors should pass through, got %v", got)
	}

	for _, err := range []error{
		fmt.Errorf("role x: %w", store.ErrNotFound),
		mailwarden.ErrInvalidRole,
		mailwarden.ErrInvalidLimit,
		mailwarden.ErrOwnerAlreadyExists,
		mailwarden.ErrProtectedTransition,
		mailwarden.ErrConfigConflict,
		fmt.Errorf("%w: webhook:manage", mailwarden.ErrAccessDenied),
	} {
		got := mapError(err)
		if got == nil || got == err {
			t.Errorf("mapError(%v) was not translated", err)
		}
	}
}

func TestDefaultLimit(t *testing.T) {
	cases := map[int]int{0: 50, -3: 50, 20: 20, 5000: 1000}
	for in, want := range cases {
		if got := defaultLimit(in); got != want {
			t.Errorf("defaultLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSendStatus(t *testing.T) {
	if got := sendStatus(&mailwarden.SendDecision{Allowed: true}); got != http.StatusOK {
		t.Errorf("allowed send: status = %d, want 200", got)
	}
	for _, reason := range []string{mailwarden.ReasonLimitReached, mailwarden.ReasonRoleForbidden} {
		got := sendStatus(&mailwarden.SendDecision{Reason: reason})
		if got != http.StatusTooManyRequests {
			t.Errorf("denied send (%s): status = %d, want 429", reason, got)
		}
	}
}
