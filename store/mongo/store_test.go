package mongo

import (
	"errors"
	"testing"

	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/mailwarden/assignment"
)

var errDuplicate = mongod.WriteException{
	WriteErrors: mongod.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

func TestUpsertRetriesAfterConcurrentInsert(t *testing.T) {
	calls := 0
	upsert := func() error {
		calls++
		if calls == 1 {
			return errDuplicate
		}
		return nil
	}
	// The row that won the race is an ordinary assignment.
	resolve := func() error { return nil }

	if err := upsertWithRetry(upsert, resolve); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 upserts, got %d", calls)
	}
}

func TestUpsertStopsOnExclusiveHolder(t *testing.T) {
	calls := 0
	upsert := func() error {
		calls++
		return errDuplicate
	}
	resolve := func() error { return assignment.ErrExclusiveHeld }

	err := upsertWithRetry(upsert, resolve)
	if !errors.Is(err, assignment.ErrExclusiveHeld) {
		t.Fatalf("expected ErrExclusiveHeld, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upsert, got %d", calls)
	}
}

func TestUpsertGivesUpAfterBoundedRetries(t *testing.T) {
	calls, resolved := 0, 0
	err := upsertWithRetry(
		func() error { calls++; return errDuplicate },
		func() error { resolved++; return nil },
	)
	if !mongod.IsDuplicateKeyError(err) {
		t.Fatalf("expected the duplicate-key error, got %v", err)
	}
	if calls != upsertAttempts || resolved != upsertAttempts {
		t.Fatalf("expected %d upserts and lookups, got %d and %d", upsertAttempts, calls, resolved)
	}
}

func TestUpsertPassesOtherErrorsThrough(t *testing.T) {
	boom := errors.New("no reachable servers")
	err := upsertWithRetry(
		func() error { return boom },
		func() error {
			t.Fatal("resolve must not run for non-duplicate errors")
			return nil
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
