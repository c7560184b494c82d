package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles/init-owner", a.initOwner,
		forge.WithSummary("Claim ownership"),
		forge.WithDescription("Makes the caller the owner if no owner exists yet."),
		forge.WithOperationID("initOwner"),
		forge.WithRequestSchema(InitOwnerRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment result", &mailwarden.AssignResult{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/promote", a.promote,
		forge.WithSummary("Change a user's role"),
		forge.WithDescription("Assigns admin, member or guest to a user. Requires user:promote."),
		forge.WithOperationID("promoteUser"),
		forge.WithRequestSchema(PromoteRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment result", &mailwarden.AssignResult{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/role", a.getUserRole,
		forge.WithSummary("Get user role"),
		forge.WithDescription("Returns the user's effective role; users without an assignment are guests."),
		forge.WithOperationID("getUserRole"),
		forge.WithResponseSchema(http.StatusOK, "User role", UserRoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns a stored role record by ID."),
		forge.WithOperationID("getRole"),
		forge.WithRequestSchema(GetRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role details", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists the stored role records."),
		forge.WithOperationID("listRoles"),
		forge.WithResponseSchema(http.StatusOK, "Role list", []*role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) initOwner(ctx forge.Context, req *InitOwnerRequest) (*mailwarden.AssignResult, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	user.DisplayName = req.DisplayName
	user.Email = req.Email

	result, err := a.eng.ClaimOwnership(ctx.Context(), user)
	if err != nil {
		return nil, mapError(err)
	}
	return result, ctx.JSON(http.StatusOK, result)
}

func (a *API) promote(ctx forge.Context, req *PromoteRequest) (*mailwarden.AssignResult, error) {
	if req.UserID == "" || req.Role == "" {
		return nil, forge.BadRequest("user_id and role are required")
	}
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	result, err := a.eng.Promote(ctx.Context(), actor, req.UserID, role.Name(req.Role))
	if err != nil {
		return nil, mapError(err)
	}
	return result, ctx.JSON(http.StatusOK, result)
}

func (a *API) getUserRole(ctx forge.Context, _ *GetUserRoleRequest) (*UserRoleResponse, error) {
	userID := ctx.Param("userId")
	if userID == "" {
		return nil, forge.BadRequest("user ID is required")
	}

	r, err := a.eng.GetUserRole(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &UserRoleResponse{UserID: userID, Role: string(r)}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*role.Role, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	r, err := a.eng.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) listRoles(ctx forge.Context, _ *ListRolesRequest) ([]*role.Role, error) {
	roles, err := a.eng.Store().ListRoles(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	return roles, ctx.JSON(http.StatusOK, roles)
}
