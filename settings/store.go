package settings

import "context"

// Store persists the email-service configuration.
type Store interface {
	// GetEmailService returns the saved configuration, or Default() with
	// Version 0 when nothing was saved yet.
	GetEmailService(ctx context.Context) (*EmailService, error)

	// SaveEmailService stores e if the saved version still equals
	// e.Version, then sets e.Version to the new version. A stale version
	// fails with ErrVersionConflict and stores nothing.
	SaveEmailService(ctx context.Context, e *EmailService) error
}
