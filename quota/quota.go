// Package quota tracks per-user daily send counts and enforces per-role
// daily limits.
//
// A limit is a positive cap, Unlimited (0) or Forbidden (-1). The owner is
// always unlimited and guests are always forbidden; configured values for
// those two roles are ignored.
package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/role"
)

// Limit is a daily send cap or one of the sentinels.
type Limit int

const (
	// Unlimited means sends are never counted.
	Unlimited Limit = 0

	// Forbidden means the role may not send at all.
	Forbidden Limit = -1
)

// Built-in limits used when the config store has no value.
const (
	DefaultAdminLimit  Limit = 5
	DefaultMemberLimit Limit = 2
)

// Denial reasons returned in a Decision.
const (
	ReasonLimitReached  = "daily limit reached"
	ReasonRoleForbidden = "role not permitted to send"
)

// ErrInvalidLimit is returned for limit values below Forbidden.
var ErrInvalidLimit = errors.New("quota: invalid limit")

// DayLayout formats the UTC calendar day a quota row belongs to.
const DayLayout = "2006-01-02"

// Day returns the UTC calendar day containing t.
func Day(t time.Time) string { return t.UTC().Format(DayLayout) }

// Validate checks that l is a cap or a sentinel.
func (l Limit) Validate() error {
	if l < Forbidden {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, l)
	}
	return nil
}

func (l Limit) String() string {
	switch {
	case l == Unlimited:
		return "unlimited"
	case l == Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("%d/day", int(l))
	}
}

// Editable reports whether limits for r can be configured.
func Editable(r role.Name) bool { return r == role.Admin || r == role.Member }

// Limits maps editable roles to their configured daily limits.
type Limits map[role.Name]Limit

// DefaultLimits returns the built-in admin and member limits.
func DefaultLimits() Limits {
	return Limits{role.Admin: DefaultAdminLimit, role.Member: DefaultMemberLimit}
}

// Effective resolves the limit that applies to r.
func (l Limits) Effective(r role.Name) Limit {
	switch r {
	case role.Owner:
		return Unlimited
	case role.Admin, role.Member:
		if v, ok := l[r]; ok {
			return v
		}
		return DefaultLimits()[r]
	default:
		return Forbidden
	}
}

// Sanitized returns a copy holding only editable roles, with defaults
// filled in for missing entries.
func (l Limits) Sanitized() Limits {
	out := DefaultLimits()
	for r, v := range l {
		if Editable(r) {
			out[r] = v
		}
	}
	return out
}

// Merge returns l with the editable entries of update applied. Entries for
// the owner and guest are dropped. Invalid values fail the whole merge.
func (l Limits) Merge(update Limits) (Limits, error) {
	out := l.Sanitized()
	for r, v := range update {
		if !Editable(r) {
			continue
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", r, err)
		}
		out[r] = v
	}
	return out, nil
}

// DailyQuota is one user's send counter for one UTC day.
type DailyQuota struct {
	ID        id.ID     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Day       string    `json:"day" db:"day"`
	SentCount int       `json:"sent_count" db:"sent_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing quota rows.
type ListFilter struct {
	UserID string `json:"user_id,omitempty"`
	Day    string `json:"day,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
