package quota

import "context"

// Store defines persistence operations for daily quota rows.
type Store interface {
	// GetDailyQuota returns the row for (userID, day). A missing row is
	// returned as a zero count with a Nil ID.
	GetDailyQuota(ctx context.Context, userID, day string) (*DailyQuota, error)

	// IncrementDailyQuota creates the (userID, day) row if needed and adds one
	// to its count only if the count is below limit. The check and the
	// increment are a single atomic step per row. It returns the row as
	// stored after the call and whether the increment happened.
	IncrementDailyQuota(ctx context.Context, userID, day string, limit int) (*DailyQuota, bool, error)

	// ListDailyQuotas returns rows matching the filter, newest day first.
	ListDailyQuotas(ctx context.Context, filter *ListFilter) ([]*DailyQuota, error)

	// PurgeDailyQuotas removes rows for days before the given day.
	PurgeDailyQuotas(ctx context.Context, beforeDay string) (int64, error)
}
