package checklog

import (
	"context"
	"time"

	"github.com/xraph/mailwarden/id"
)

// Store defines persistence operations for audit entries.
type Store interface {
	// CreateCheckLog persists a new entry.
	CreateCheckLog(ctx context.Context, e *Entry) error

	// GetCheckLog retrieves an entry by ID.
	GetCheckLog(ctx context.Context, logID id.CheckLogID) (*Entry, error)

	// ListCheckLogs returns entries matching the filter, newest first.
	ListCheckLogs(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountCheckLogs returns the number of entries matching the filter.
	CountCheckLogs(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeCheckLogs removes entries created before the given time.
	PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error)
}
