// Package settings holds the owner-editable email-service configuration:
// the sending switch, the outbound API key and the per-role daily limits.
package settings

import (
	"errors"
	"strings"
	"time"

	"github.com/xraph/mailwarden/quota"
)

// ErrVersionConflict is returned when a save is based on a stale version.
var ErrVersionConflict = errors.New("settings: version conflict")

// EmailService is the stored email-service configuration. Version starts at
// zero for a configuration that was never saved and grows by one per save.
type EmailService struct {
	Enabled    bool         `json:"enabled"`
	APIKey     string       `json:"api_key,omitempty"`
	RoleLimits quota.Limits `json:"role_limits"`
	Version    int64        `json:"version"`
	UpdatedBy  string       `json:"updated_by,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Default returns the configuration used before anything is saved.
func Default() *EmailService {
	return &EmailService{RoleLimits: quota.DefaultLimits()}
}

// Clone returns a deep copy.
func (e *EmailService) Clone() *EmailService {
	cp := *e
	cp.RoleLimits = make(quota.Limits, len(e.RoleLimits))
	for r, l := range e.RoleLimits {
		cp.RoleLimits[r] = l
	}
	return &cp
}

// MaskedAPIKey returns the key with all but the last four characters hidden.
func (e *EmailService) MaskedAPIKey() string {
	if len(e.APIKey) <= 4 {
		return strings.Repeat("*", len(e.APIKey))
	}
	return strings.Repeat("*", len(e.APIKey)-4) + e.APIKey[len(e.APIKey)-4:]
}
