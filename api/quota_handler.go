package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden/quota"
)

func (a *API) registerQuotaRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("quota"))

	return g.GET("/quota", a.getQuota,
		forge.WithSummary("Daily send quota"),
		forge.WithDescription("Returns the caller's limit, sends used and sends remaining today (UTC)."),
		forge.WithOperationID("getQuota"),
		forge.WithResponseSchema(http.StatusOK, "Quota usage", quota.Usage{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) getQuota(ctx forge.Context, _ *QuotaRequest) (*quota.Usage, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	usage, err := a.eng.QuotaUsage(ctx.Context(), user.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return usage, ctx.JSON(http.StatusOK, usage)
}
