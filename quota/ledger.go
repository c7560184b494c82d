package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/mailwarden/role"
)

// LimitSource returns the currently configured limits.
type LimitSource func(ctx context.Context) (Limits, error)

// Decision is the outcome of a send check.
type Decision struct {
	Allowed bool      `json:"allowed"`
	Reason  string    `json:"reason,omitempty"`
	Role    role.Name `json:"role"`
	Limit   Limit     `json:"limit"`
	Used    int       `json:"used"`
	Day     string    `json:"day,omitempty"`
}

// Usage reports a user's consumption for one day.
type Usage struct {
	Role  role.Name `json:"role"`
	Limit Limit     `json:"limit"`
	Used  int       `json:"used"`
	// Remaining is -1 when the limit is Unlimited.
	Remaining int    `json:"remaining"`
	Day       string `json:"day"`
}

// Ledger answers whether a user may send one more message today and
// records the consumption.
type Ledger struct {
	store  Store
	limits LimitSource
	now    func() time.Time
}

// NewLedger creates a ledger. A nil limits source uses DefaultLimits and a
// nil clock uses time.Now.
func NewLedger(s Store, limits LimitSource, now func() time.Time) *Ledger {
	if limits == nil {
		limits = func(context.Context) (Limits, error) { return DefaultLimits(), nil }
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: s, limits: limits, now: now}
}

// Limit resolves the effective limit for r. Owner and guest never consult
// the limit source.
func (l *Ledger) Limit(ctx context.Context, r role.Name) (Limit, error) {
	if !Editable(r) {
		return Limits(nil).Effective(r), nil
	}
	configured, err := l.limits(ctx)
	if err != nil {
		return 0, fmt.Errorf("load limits: %w", err)
	}
	return configured.Effective(r), nil
}

// TryConsume consumes one send unit for userID if r's limit allows it.
// Unlimited and forbidden limits never touch the store. Every allowed call
// is a committed consumption; there is no refund.
func (l *Ledger) TryConsume(ctx context.Context, userID string, r role.Name) (*Decision, error) {
	limit, err := l.Limit(ctx, r)
	if err != nil {
		return nil, err
	}

	d := &Decision{Role: r, Limit: limit}
	switch limit {
	case Unlimited:
		d.Allowed = true
		return d, nil
	case Forbidden:
		d.Reason = ReasonRoleForbidden
		return d, nil
	}

	d.Day = Day(l.now())
	row, ok, err := l.store.IncrementDailyQuota(ctx, userID, d.Day, int(limit))
	if err != nil {
		return nil, fmt.Errorf("increment daily quota: %w", err)
	}
	d.Used = row.SentCount
	if !ok {
		d.Reason = ReasonLimitReached
		return d, nil
	}
	d.Allowed = true
	return d, nil
}

// Usage reports today's consumption for userID without changing it.
func (l *Ledger) Usage(ctx context.Context, userID string, r role.Name) (*Usage, error) {
	limit, err := l.Limit(ctx, r)
	if err != nil {
		return nil, err
	}

	u := &Usage{Role: r, Limit: limit, Day: Day(l.now())}
	switch limit {
	case Unlimited:
		u.Remaining = -1
		return u, nil
	case Forbidden:
		return u, nil
	}

	row, err := l.store.GetDailyQuota(ctx, userID, u.Day)
	if err != nil {
		return nil, fmt.Errorf("get daily quota: %w", err)
	}
	u.Used = row.SentCount
	u.Remaining = max(int(limit)-row.SentCount, 0)
	return u, nil
}
