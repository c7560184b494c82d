package mailwarden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/store"
)

// Authorize reports whether user may perform the action named by c.
// Apart from the optional audit entry it has no side effects.
func (e *Engine) Authorize(ctx context.Context, user User, c permission.Capability) (bool, error) {
	start := time.Now()
	r, err := e.roleOf(ctx, user.ID)
	if err != nil {
		return false, err
	}

	allowed := e.capabilities.Has(r, c)
	if c == permission.AssignOwner && r != role.Owner {
		allowed = false
	}

	e.plugins.EmitAfterAuthorize(ctx, user.ID, r, c, allowed)
	if e.config.AuditChecks {
		e.audit(ctx, &checklog.Entry{
			Kind:       checklog.KindAuthorize,
			ActorID:    user.ID,
			Role:       string(r),
			Action:     string(c),
			Allowed:    allowed,
			EvalTimeNs: time.Since(start).Nanoseconds(),
		})
	}
	return allowed, nil
}

// Enforce returns ErrAccessDenied if user lacks c.
func (e *Engine) Enforce(ctx context.Context, user User, c permission.Capability) error {
	ok, err := e.Authorize(ctx, user, c)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccessDenied, c)
	}
	return nil
}

// AuthorizeSend checks user's daily quota and consumes one unit when the
// send is allowed. Every call that returns Allowed has consumed a unit, so
// call it once per real send attempt, after the message itself has been
// validated. Units are not refunded if the send later fails.
//
// A returned ErrPersistence means nothing was consumed.
func (e *Engine) AuthorizeSend(ctx context.Context, user User) (*SendDecision, error) {
	start := time.Now()
	r, err := e.roleOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	d, err := e.ledger.TryConsume(ctx, user.ID, r)
	if err != nil {
		return nil, e.persistenceError(ctx, "consume quota", err)
	}

	e.plugins.EmitAfterSendCheck(ctx, user.ID, d)
	if e.config.AuditChecks {
		e.audit(ctx, &checklog.Entry{
			Kind:       checklog.KindSend,
			ActorID:    user.ID,
			Role:       string(r),
			Action:     "send",
			Allowed:    d.Allowed,
			Reason:     d.Reason,
			EvalTimeNs: time.Since(start).Nanoseconds(),
		})
	}

	return &SendDecision{
		Allowed: d.Allowed,
		Reason:  d.Reason,
		Role:    d.Role,
		Limit:   d.Limit,
		Used:    d.Used,
	}, nil
}

// QuotaUsage reports today's send usage for userID without consuming any.
func (e *Engine) QuotaUsage(ctx context.Context, userID string) (*quota.Usage, error) {
	r, err := e.roleOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	u, err := e.ledger.Usage(ctx, userID, r)
	if err != nil {
		return nil, e.persistenceError(ctx, "quota usage", err)
	}
	return u, nil
}

// ListCheckLogs returns audit entries.
func (e *Engine) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	list, err := e.store.ListCheckLogs(ctx, filter)
	if err != nil {
		return nil, e.persistenceError(ctx, "list check logs", err)
	}
	return list, nil
}

// GetCheckLog returns one audit entry. A missing entry wraps
// store.ErrNotFound.
func (e *Engine) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	entry, err := e.store.GetCheckLog(ctx, logID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, e.persistenceError(ctx, "get check log", err)
	}
	return entry, nil
}

// audit writes a check log entry. A failed write is logged and never
// changes the decision it describes.
func (e *Engine) audit(ctx context.Context, entry *checklog.Entry) {
	entry.ID = id.NewCheckLogID()
	entry.CreatedAt = e.now().UTC()
	if err := e.store.CreateCheckLog(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "mailwarden: audit write failed",
			slog.String("kind", string(entry.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
