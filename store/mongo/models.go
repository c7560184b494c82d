package mongo

import (
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
	ID              string    `grove:"id,pk"           bson:"_id"`
	Name            string    `grove:"name"            bson:"name"`
	Description     string    `grove:"description"     bson:"description"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"      bson:"updated_at"`
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
	ID              string    `grove:"id,pk"           bson:"_id"`
	UserID          string    `grove:"user_id"         bson:"user_id"`
	RoleID          string    `grove:"role_id"         bson:"role_id"`
	RoleName        string    `grove:"role_name"       bson:"role_name"`
	Exclusive       bool      `grove:"exclusive"       bson:"exclusive"`
	GrantedBy       string    `grove:"granted_by"      bson:"granted_by"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
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
	ID              string    `grove:"id,pk"           bson:"_id"`
	UserID          string    `grove:"user_id"         bson:"user_id"`
	Day             string    `grove:"day"             bson:"day"`
	SentCount       int       `grove:"sent_count"      bson:"sent_count"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"      bson:"updated_at"`
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
	Key             string         `grove:"name,pk"         bson:"_id"`
	Enabled         bool           `grove:"enabled"         bson:"enabled"`
	APIKey          string         `grove:"api_key"         bson:"api_key"`
	RoleLimits      map[string]int `grove:"role_limits"     bson:"role_limits"`
	Version         int64          `grove:"version"         bson:"version"`
	UpdatedBy       string         `grove:"updated_by"      bson:"updated_by"`
	UpdatedAt       time.Time      `grove:"updated_at"      bson:"updated_at"`
}

func emailServiceToModel(e *settings.EmailService) *settingModel {
	limits := make(map[string]int, len(e.RoleLimits))
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

func emailServiceFromModel(m *settingModel) *settings.EmailService {
	limits := make(quota.Limits, len(m.RoleLimits))
	for r, l := range m.RoleLimits {
		limits[role.Name(r)] = quota.Limit(l)
	}
	return &settings.EmailService{
		Enabled:    m.Enabled,
		APIKey:     m.APIKey,
		RoleLimits: limits,
		Version:    m.Version,
		UpdatedBy:  m.UpdatedBy,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Check log model
// ──────────────────────────────────────────────────

type checkLogModel struct {
	grove.BaseModel `grove:"table:mailwarden_check_logs"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Kind            string    `grove:"kind"            bson:"kind"`
	ActorID         string    `grove:"actor_id"        bson:"actor_id"`
	TargetID        string    `grove:"target_id"       bson:"target_id,omitempty"`
	Role            string    `grove:"role"            bson:"role"`
	Action          string    `grove:"action"          bson:"action"`
	Allowed         bool      `grove:"allowed"         bson:"allowed"`
	Reason          string    `grove:"reason"          bson:"reason,omitempty"`
	EvalTimeNs      int64     `grove:"eval_time_ns"    bson:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
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
