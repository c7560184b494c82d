package role_test

import (
	"errors"
	"testing"

	"github.com/xraph/mailwarden/role"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want role.Name
	}{
		{"owner", role.Owner},
		{"ADMIN", role.Admin},
		{" member ", role.Member},
		{"guest", role.Guest},
		{"EMPEROR", role.Owner},
		{"duke", role.Admin},
		{"Knight", role.Member},
		{"CIVILIAN", role.Guest},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := role.ParseName(tt.in)
			if err != nil {
				t.Fatalf("ParseName(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseNameRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "root", "superadmin", "owner2"} {
		if _, err := role.ParseName(in); !errors.Is(err, role.ErrUnknownName) {
			t.Errorf("ParseName(%q) err = %v, want ErrUnknownName", in, err)
		}
	}
}

func TestRankOrder(t *testing.T) {
	all := role.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Rank() <= all[i].Rank() {
			t.Errorf("%s should outrank %s", all[i-1], all[i])
		}
	}
	if role.Name("nobody").Rank() != -1 {
		t.Error("unknown name should rank -1")
	}
}

func TestExclusive(t *testing.T) {
	for _, n := range role.All() {
		if n.Exclusive() != (n == role.Owner) {
			t.Errorf("%s.Exclusive() = %v", n, n.Exclusive())
		}
	}
}
