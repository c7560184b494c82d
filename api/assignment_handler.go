package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/permission"
	"github.com/xraph/mailwarden/role"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	return g.GET("/assignments", a.listAssignments,
		forge.WithSummary("List role assignments"),
		forge.WithDescription("Lists stored role assignments. Requires user:promote."),
		forge.WithOperationID("listAssignments"),
		forge.WithRequestSchema(ListAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", ListResponse[*assignment.Assignment]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAssignments(ctx forge.Context, req *ListAssignmentsRequest) (*ListResponse[*assignment.Assignment], error) {
	if _, err := a.require(ctx, permission.PromoteUser); err != nil {
		return nil, err
	}

	filter := &assignment.ListFilter{
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	if req.Role != "" {
		n, err := role.ParseName(req.Role)
		if err != nil {
			return nil, forge.BadRequest(err.Error())
		}
		filter.RoleName = n
	}

	items, err := a.eng.ListAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*assignment.Assignment]{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
