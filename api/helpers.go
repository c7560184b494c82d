package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/store"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, mailwarden.ErrInvalidRole) || errors.Is(err, mailwarden.ErrInvalidLimit) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, mailwarden.ErrOwnerAlreadyExists) || errors.Is(err, mailwarden.ErrProtectedTransition) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, mailwarden.ErrConfigConflict) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, mailwarden.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

// StatusSendDenied is the HTTP status for a send refused by the daily
// quota or by the caller's role.
const StatusSendDenied = http.StatusTooManyRequests

func sendStatus(d *mailwarden.SendDecision) int {
	if d.Allowed {
		return http.StatusOK
	}
	return StatusSendDenied
}

// caller resolves the authenticated user from the request context.
func caller(ctx forge.Context) (mailwarden.User, error) {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return mailwarden.User{}, forge.Forbidden("authentication required")
	}
	return mailwarden.User{ID: userID}, nil
}

// require resolves the caller and enforces capability c.
func (a *API) require(ctx forge.Context, c permission.Capability) (mailwarden.User, error) {
	user, err := caller(ctx)
	if err != nil {
		return user, err
	}
	if err := a.eng.Enforce(ctx.Context(), user, c); err != nil {
		return user, mapError(err)
	}
	return user, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
