// Package store defines the aggregate persistence interface. Each subsystem
// (role, assignment, quota, settings, checklog) defines its own store
// interface and the composite Store composes them.
// Backends: Memory, SQLite, Postgres and MongoDB. The quota ledger can also
// live in Redis (store/redis) independently of the composite store.
package store

import (
	"context"
	"errors"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
)

var (
	// ErrNotFound is wrapped by every backend for missing records.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is wrapped by every backend for unique constraint
	// violations that the operation does not resolve itself.
	ErrConflict = errors.New("store: conflict")
)

// Store is the aggregate persistence interface.
type Store interface {
	role.Store
	assignment.Store
	quota.Store
	settings.Store
	checklog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
