package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
)

func (a *API) registerConfigRoutes(router forge.Router) error {
	g := router.Group("/v1/config", forge.WithGroupTags("config"))

	if err := g.GET("/email-service", a.getEmailService,
		forge.WithSummary("Get email-service config"),
		forge.WithDescription("Returns the sending configuration with the API key masked. Requires email_service:manage."),
		forge.WithOperationID("getEmailService"),
		forge.WithResponseSchema(http.StatusOK, "Email-service config", EmailServiceResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/email-service", a.updateEmailService,
		forge.WithSummary("Update email-service config"),
		forge.WithDescription("Updates sending configuration and per-role limits. Requires email_service:manage."),
		forge.WithOperationID("updateEmailService"),
		forge.WithRequestSchema(UpdateEmailServiceRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated config", EmailServiceResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) getEmailService(ctx forge.Context, _ *GetEmailServiceRequest) (*EmailServiceResponse, error) {
	if _, err := a.require(ctx, permission.ManageEmailService); err != nil {
		return nil, err
	}

	cfg, err := a.eng.GetEmailService(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	resp := toEmailServiceResponse(cfg)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) updateEmailService(ctx forge.Context, req *UpdateEmailServiceRequest) (*EmailServiceResponse, error) {
	user, err := a.require(ctx, permission.ManageEmailService)
	if err != nil {
		return nil, err
	}

	u := mailwarden.EmailServiceUpdate{
		Enabled: req.Enabled,
		APIKey:  req.APIKey,
		Version: req.Version,
	}
	if len(req.RoleLimits) > 0 {
		u.RoleLimits = make(quota.Limits, len(req.RoleLimits))
		for name, limit := range req.RoleLimits {
			n, err := role.ParseName(name)
			if err != nil {
				return nil, forge.BadRequest(err.Error())
			}
			u.RoleLimits[n] = quota.Limit(limit)
		}
	}

	cfg, err := a.eng.UpdateEmailService(ctx.Context(), u, user.ID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := toEmailServiceResponse(cfg)
	return resp, ctx.JSON(http.StatusOK, resp)
}
