// Package checklog defines the audit record of authorization decisions.
package checklog

import (
	"time"

	"github.com/xraph/mailwarden/id"
)

// Kind identifies which operation produced an entry.
type Kind string

const (
	KindAuthorize Kind = "authorize"
	KindSend      Kind = "send"
	KindAssign    Kind = "assign"
)

// Entry is a single audit record.
type Entry struct {
	ID       id.CheckLogID `json:"id" db:"id"`
	Kind     Kind          `json:"kind" db:"kind"`
	ActorID  string        `json:"actor_id" db:"actor_id"`
	TargetID string        `json:"target_id,omitempty" db:"target_id"`
	Role     string        `json:"role" db:"role"`
	// Action is the capability checked, "send", or the role assigned.
	Action     string    `json:"action" db:"action"`
	Allowed    bool      `json:"allowed" db:"allowed"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	EvalTimeNs int64     `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	Kind    Kind       `json:"kind,omitempty"`
	ActorID string     `json:"actor_id,omitempty"`
	Allowed *bool      `json:"allowed,omitempty"`
	After   *time.Time `json:"after,omitempty"`
	Before  *time.Time `json:"before,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
}
