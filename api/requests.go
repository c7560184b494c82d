package api

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// InitOwnerRequest is the body for claiming ownership. The profile fields
// are informational; the caller is taken from the request context.
type InitOwnerRequest struct {
	DisplayName string `json:"display_name,omitempty" description:"Caller display name"`
	Email       string `json:"email,omitempty" description:"Caller email"`
}

// PromoteRequest is the body for changing a user's role.
type PromoteRequest struct {
	UserID string `json:"user_id" description:"Target user ID"`
	Role   string `json:"role" description:"Role name (admin, member, guest)"`
}

// GetUserRoleRequest is the path parameter for reading a user's role.
type GetUserRoleRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// GetRoleRequest is the path parameter for reading a role row.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest has no parameters.
type ListRolesRequest struct{}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// ListAssignmentsRequest holds query parameters for listing assignments.
type ListAssignmentsRequest struct {
	Role   string `query:"role" description:"Filter by role name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Authorization requests
// ──────────────────────────────────────────────────

// CheckRequest is the body for a capability check.
type CheckRequest struct {
	Capability string `json:"capability" description:"Capability name (e.g. webhook:manage)"`
}

// SendRequest is the body for a send authorization. It has no fields; the
// caller is the sender.
type SendRequest struct{}

// QuotaRequest has no parameters.
type QuotaRequest struct{}

// ──────────────────────────────────────────────────
// Config requests
// ──────────────────────────────────────────────────

// GetEmailServiceRequest has no parameters.
type GetEmailServiceRequest struct{}

// UpdateEmailServiceRequest is the body for updating the email-service
// configuration. Omitted fields are left unchanged.
type UpdateEmailServiceRequest struct {
	Enabled    *bool          `json:"enabled,omitempty" description:"Whether sending is enabled"`
	APIKey     *string        `json:"api_key,omitempty" description:"Provider API key"`
	RoleLimits map[string]int `json:"role_limits,omitempty" description:"Daily limits for admin and member (0 = unlimited, -1 = forbidden)"`
	Version    *int64         `json:"version,omitempty" description:"Expected version for optimistic concurrency"`
}

// ──────────────────────────────────────────────────
// Check log requests
// ──────────────────────────────────────────────────

// GetCheckLogRequest is the path parameter for reading one audit entry.
type GetCheckLogRequest struct {
	LogID string `path:"logId" description:"Check log ID"`
}

// ListCheckLogsRequest holds query parameters for querying audit entries.
type ListCheckLogsRequest struct {
	Kind    string `query:"kind" description:"Filter by kind (authorize, send, assign)"`
	ActorID string `query:"actor_id" description:"Filter by actor"`
	Allowed string `query:"allowed" description:"Filter by outcome (true, false)"`
	After   string `query:"after" description:"Entries at or after (RFC3339)"`
	Before  string `query:"before" description:"Entries at or before (RFC3339)"`
	Limit   int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset  int    `query:"offset" description:"Results to skip"`
}
