package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/permission"
)

func (a *API) registerCheckLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("check-logs"))

	if err := g.GET("/check-logs/:logId", a.getCheckLog,
		forge.WithSummary("Get check log"),
		forge.WithDescription("Returns one audit entry. Requires site_config:manage."),
		forge.WithOperationID("getCheckLog"),
		forge.WithRequestSchema(GetCheckLogRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check log entry", &checklog.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/check-logs", a.listCheckLogs,
		forge.WithSummary("Query check logs"),
		forge.WithDescription("Returns authorization audit entries with optional filters. Requires site_config:manage."),
		forge.WithOperationID("listCheckLogs"),
		forge.WithRequestSchema(ListCheckLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check log list", []*checklog.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listCheckLogs(ctx forge.Context, req *ListCheckLogsRequest) ([]*checklog.Entry, error) {
	if _, err := a.require(ctx, permission.ManageSiteConfig); err != nil {
		return nil, err
	}

	filter := &checklog.QueryFilter{
		Kind:    checklog.Kind(req.Kind),
		ActorID: req.ActorID,
		Limit:   defaultLimit(req.Limit),
		Offset:  req.Offset,
	}

	if req.Allowed != "" {
		allowed, err := strconv.ParseBool(req.Allowed)
		if err != nil {
			return nil, forge.BadRequest("invalid allowed flag")
		}
		filter.Allowed = &allowed
	}
	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	logs, err := a.eng.ListCheckLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return logs, ctx.JSON(http.StatusOK, logs)
}

func (a *API) getCheckLog(ctx forge.Context, _ *GetCheckLogRequest) (*checklog.Entry, error) {
	if _, err := a.require(ctx, permission.ManageSiteConfig); err != nil {
		return nil, err
	}

	logID, err := id.ParseCheckLogID(ctx.Param("logId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid check log ID: %v", err))
	}

	entry, err := a.eng.GetCheckLog(ctx.Context(), logID)
	if err != nil {
		return nil, mapError(err)
	}
	return entry, ctx.JSON(http.StatusOK, entry)
}
