package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/mailwarden/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"RoleID", id.NewRoleID, "role_"},
		{"AssignmentID", id.NewAssignmentID, "asgn_"},
		{"QuotaID", id.NewQuotaID, "quota_"},
		{"CheckLogID", id.NewCheckLogID, "chklog_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParsePrefixed(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		other   func() id.ID
	}{
		{"RoleID", id.NewRoleID, id.ParseRoleID, id.NewAssignmentID},
		{"CheckLogID", id.NewCheckLogID, id.ParseCheckLogID, id.NewQuotaID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
			if _, err := tt.parseFn(tt.other().String()); err == nil {
				t.Error("expected cross-prefix parse to fail")
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestStored(t *testing.T) {
	original := id.NewAssignmentID()
	if got := id.Stored(original.String()); got.String() != original.String() {
		t.Errorf("mismatch: %q != %q", got.String(), original.String())
	}
	if got := id.Stored("not an id"); !got.IsNil() {
		t.Errorf("expected Nil for garbage, got %q", got.String())
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewQuotaID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan([]byte{}); err != nil {
		t.Fatalf("Scan(empty) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of empty bytes")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewQuotaID()
	b := id.NewQuotaID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewQuotaID() calls returned the same ID: %q", a.String())
	}
}
