package mailwarden

import (
	"context"

	"github.com/xraph/mailwarden/settings"
)

// Cache holds configuration snapshots between store reads.
type Cache interface {
	// Get returns a cached snapshot, if available.
	Get(ctx context.Context, key string) (*settings.EmailService, bool)

	// Set stores a snapshot.
	Set(ctx context.Context, key string, cfg *settings.EmailService)

	// Invalidate drops a snapshot.
	Invalidate(ctx context.Context, key string)
}
