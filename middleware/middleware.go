// Package middleware provides HTTP authorization middleware for mailwarden.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/api"
	"github.com/xraph/mailwarden/permission"
)

const (
	msgDenied      = "access denied"
	msgUnavailable = "temporarily unavailable, try again"
)

// Require enforces a capability. The caller is the Forge user ID from the
// request context; anonymous requests are denied.
func Require(eng *mailwarden.Engine, c permission.Capability) forge.Middleware {
	return RequireAll(eng, c)
}

// RequireAny allows the request if ANY of the capabilities is granted.
func RequireAny(eng *mailwarden.Engine, caps ...permission.Capability) forge.Middleware {
	return gate(func(ctx context.Context, user mailwarden.User) (int, string) {
		return checkAny(ctx, eng, user, caps)
	})
}

// RequireAll allows the request only if ALL capabilities are granted.
func RequireAll(eng *mailwarden.Engine, caps ...permission.Capability) forge.Middleware {
	return gate(func(ctx context.Context, user mailwarden.User) (int, string) {
		return checkAll(ctx, eng, user, caps)
	})
}

// RequireSend consumes one unit of the caller's daily quota and rejects the
// request with 429 when the quota is spent or the role may not send.
func RequireSend(eng *mailwarden.Engine) forge.Middleware {
	return gate(func(ctx context.Context, user mailwarden.User) (int, string) {
		return checkSend(ctx, eng, user)
	})
}

// gate runs check for the resolved caller. A zero status lets the request
// through.
func gate(check func(context.Context, mailwarden.User) (int, string)) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			user, ok := resolveUser(ctx)
			if !ok {
				return writeError(ctx, http.StatusForbidden, msgDenied)
			}
			if status, msg := check(ctx.Context(), user); status != 0 {
				return writeError(ctx, status, msg)
			}
			return next(ctx)
		}
	}
}

// checkAny passes if any capability is granted. A storage failure only
// answers 503 when nothing was granted.
func checkAny(ctx context.Context, eng *mailwarden.Engine, user mailwarden.User, caps []permission.Capability) (int, string) {
	var failed error
	for _, c := range caps {
		allowed, err := eng.Authorize(ctx, user, c)
		if err != nil {
			failed = err
			continue
		}
		if allowed {
			return 0, ""
		}
	}
	if failed != nil {
		return errorStatus(failed)
	}
	return http.StatusForbidden, msgDenied
}

func checkAll(ctx context.Context, eng *mailwarden.Engine, user mailwarden.User, caps []permission.Capability) (int, string) {
	for _, c := range caps {
		if err := eng.Enforce(ctx, user, c); err != nil {
			return errorStatus(err)
		}
	}
	return 0, ""
}

func checkSend(ctx context.Context, eng *mailwarden.Engine, user mailwarden.User) (int, string) {
	decision, err := eng.AuthorizeSend(ctx, user)
	if err != nil {
		return errorStatus(err)
	}
	if !decision.Allowed {
		return api.StatusSendDenied, decision.Reason
	}
	return 0, ""
}

// errorStatus separates a policy denial (403) from a failure the caller
// may retry (503).
func errorStatus(err error) (int, string) {
	if errors.Is(err, mailwarden.ErrAccessDenied) {
		return http.StatusForbidden, msgDenied
	}
	return http.StatusServiceUnavailable, msgUnavailable
}

func resolveUser(ctx forge.Context) (mailwarden.User, bool) {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return mailwarden.User{}, false
	}
	return mailwarden.User{ID: userID}, true
}

func writeError(ctx forge.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}
