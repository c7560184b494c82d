package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:mailwarden_roles"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		Name:        string(r.Name),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	return &role.Role{
		ID:          id.Stored(m.ID),
		Name:        role.Name(m.Name),
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:mailwarden_assignments"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	RoleName        string    `grove:"role_name,notnull"`
	Exclusive       bool      `grove:"exclusive,notnull"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:        a.ID.String(),
		UserID:    a.UserID,
		RoleID:    a.RoleID.String(),
		RoleName:  string(a.RoleName),
		Exclusive: a.Exclusive,
		GrantedBy: a.GrantedBy,
		CreatedAt: a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	return &assignment.Assignment{
		ID:        id.Stored(m.ID),
		UserID:    m.UserID,
		RoleID:    id.Stored(m.RoleID),
		RoleName:  role.Name(m.RoleName),
		Exclusive: m.Exclusive,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Daily quota model
// ──────────────────────────────────────────────────

type dailyQuotaModel struct {
	grove.BaseModel `grove:"table:mailwarden_daily_quotas"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	Day             string    `grove:"day,notnull"`
	SentCount       int       `grove:"sent_count,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func dailyQuotaFromModel(m *dailyQuotaModel) *quota.DailyQuota {
	return &quota.DailyQuota{
		ID:        id.Stored(m.ID),
		UserID:    m.UserID,
		Day:       m.Day,
		SentCount: m.SentCount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Settings model
// ──────────────────────────────────────────────────

const emailServiceKey = "email_service"

type settingModel struct {
	grove.BaseModel `grove:"table:mailwarden_settings"`
	Key             string         `grove:"name,pk"`
	Enabled         bool           `grove:"enabled,notnull"`
	APIKey          string         `grove:"api_key"`
	RoleLimits      map[string]any `grove:"role_limits,type:jsonb"`
	Version         int64          `grove:"version,notnull"`
	UpdatedBy       string         `grove:"updated_by"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func emailServiceToModel(e *settings.EmailService) *settingModel {
	limits := make(map[string]any, len(e.RoleLimits))
	for r, l := range e.RoleLimits {
		limits[string(r)] = int(l)
	}
	return &settingModel{
		Key:        emailServiceKey,
		Enabled:    e.Enabled,
		APIKey:     e.APIKey,
		RoleLimits: limits,
		Version:    e.Version,
		UpdatedBy:  e.UpdatedBy,
		UpdatedAt:  e.UpdatedAt,
	}
}

func emailServiceFromModel(m *settingModel) (*settings.EmailService, error) {
	limits := make(quota.Limits, len(m.RoleLimits))
	for r, v := range m.RoleLimits {
		n, err := limitValue(v)
		if err != nil {
			return nil, fmt.Errorf("role limit %q: %w", r, err)
		}
		limits[role.Name(r)] = n
	}
	return &settings.EmailService{
		Enabled:    m.Enabled,
		APIKey:     m.APIKey,
		RoleLimits: limits,
		Version:    m.Version,
		UpdatedBy:  m.UpdatedBy,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// limitValue converts a decoded jsonb number.
func limitValue(v any) (quota.Limit, error) {
	switch n := v.(type) {
	case float64:
		return quota.Limit(n), nil
	case int:
		return quota.Limit(n), nil
	case int64:
		return quota.Limit(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return quota.Limit(i), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// ──────────────────────────────────────────────────
// Check log model
// ──────────────────────────────────────────────────

type checkLogModel struct {
	grove.BaseModel `grove:"table:mailwarden_check_logs"`
	ID              string    `grove:"id,pk"`
	Kind            string    `grove:"kind,notnull"`
	ActorID         string    `grove:"actor_id,notnull"`
	TargetID        string    `grove:"target_id"`
	Role            string    `grove:"role,notnull"`
	Action          string    `grove:"action,notnull"`
	Allowed         bool      `grove:"allowed,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func checkLogToModel(e *checklog.Entry) *checkLogModel {
	return &checkLogModel{
		ID:         e.ID.String(),
		Kind:       string(e.Kind),
		ActorID:    e.ActorID,
		TargetID:   e.TargetID,
		Role:       e.Role,
		Action:     e.Action,
		Allowed:    e.Allowed,
		Reason:     e.Reason,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func checkLogFromModel(m *checkLogModel) *checklog.Entry {
	return &checklog.Entry{
		ID:         id.Stored(m.ID),
		Kind:       checklog.Kind(m.Kind),
		ActorID:    m.ActorID,
		TargetID:   m.TargetID,
		Role:       m.Role,
		Action:     m.Action,
		Allowed:    m.Allowed,
		Reason:     m.Reason,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}
}
