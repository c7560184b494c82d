package api

import (
	"time"

	"github.com/xraph/mailwarden"
	"github.com/xraph/mailwarden/settings"
)

// UserRoleResponse is a user's effective role.
type UserRoleResponse struct {
	UserID string `json:"user_id" description:"User ID"`
	Role   string `json:"role" description:"Effective role"`
}

// CheckResponse is the result of a capability check.
type CheckResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the capability is granted"`
	Capability string `json:"capability" description:"Capability checked"`
	Role       string `json:"role" description:"Caller's role"`
}

// SendResponse is the result of a send authorization.
type SendResponse struct {
	Allowed bool   `json:"allowed" description:"Whether the send may proceed"`
	Reason  string `json:"reason,omitempty" description:"Denial reason"`
	Role    string `json:"role" description:"Sender's role"`
	Limit   int    `json:"limit" description:"Daily limit (0 = unlimited, -1 = forbidden)"`
	Used    int    `json:"used" description:"Sends counted today"`
}

func toSendResponse(d *mailwarden.SendDecision) *SendResponse {
	return &SendResponse{
		Allowed: d.Allowed,
		Reason:  d.Reason,
		Role:    string(d.Role),
		Limit:   int(d.Limit),
		Used:    d.Used,
	}
}

// EmailServiceResponse is the email-service configuration with the API key
// masked.
type EmailServiceResponse struct {
	Enabled    bool           `json:"enabled" description:"Whether sending is enabled"`
	APIKey     string         `json:"api_key,omitempty" description:"Masked provider API key"`
	RoleLimits map[string]int `json:"role_limits" description:"Effective daily limits per role"`
	Version    int64          `json:"version" description:"Configuration version"`
	UpdatedBy  string         `json:"updated_by,omitempty" description:"Last writer"`
	UpdatedAt  time.Time      `json:"updated_at" description:"Last write time"`
}

func toEmailServiceResponse(e *settings.EmailService) *EmailServiceResponse {
	limits := make(map[string]int, len(e.RoleLimits))
	for r, l := range e.RoleLimits {
		limits[string(r)] = int(l)
	}
	return &EmailServiceResponse{
		Enabled:    e.Enabled,
		APIKey:     e.MaskedAPIKey(),
		RoleLimits: limits,
		Version:    e.Version,
		UpdatedBy:  e.UpdatedBy,
		UpdatedAt:  e.UpdatedAt,
	}
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
