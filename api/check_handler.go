package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden/permission"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Capability check"),
		forge.WithDescription("Reports whether the caller's role grants the capability."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce capability"),
		forge.WithDescription("Returns 200 if granted, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Granted", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/send", a.send,
		forge.WithSummary("Authorize a send"),
		forge.WithDescription("Consumes one unit of the caller's daily quota when allowed. Returns 429 when the quota is spent or the role may not send."),
		forge.WithOperationID("authzSend"),
		forge.WithRequestSchema(SendRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Send decision", SendResponse{}),
		forge.WithResponseSchema(http.StatusTooManyRequests, "Send denied", SendResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) evaluate(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.Capability == "" {
		return nil, forge.BadRequest("capability is required")
	}
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	c := permission.Capability(req.Capability)
	allowed, err := a.eng.Authorize(ctx.Context(), user, c)
	if err != nil {
		return nil, mapError(err)
	}
	r, err := a.eng.GetUserRole(ctx.Context(), user.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return &CheckResponse{Allowed: allowed, Capability: req.Capability, Role: string(r)}, nil
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := a.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := a.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) send(ctx forge.Context, _ *SendRequest) (*SendResponse, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	decision, err := a.eng.AuthorizeSend(ctx.Context(), user)
	if err != nil {
		return nil, mapError(err)
	}
	resp := toSendResponse(decision)
	return resp, ctx.JSON(sendStatus(decision), resp)
}
