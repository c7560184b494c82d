// Package memory provides an in-memory implementation of the mailwarden
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
	"github.com/xraph/mailwarden/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store. One mutex guards every map, so
// each method is a serializable transaction.
type Store struct {
	mu sync.RWMutex

	roles        map[string]*role.Role             // roleID -> role
	assignments  map[string]*assignment.Assignment // userID -> assignment
	exclusive    string                            // userID holding the exclusive role
	quotas       map[quotaKey]*quota.DailyQuota
	emailService *settings.EmailService
	checkLogs    map[string]*checklog.Entry
}

type quotaKey struct{ userID, day string }

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:       make(map[string]*role.Role),
		assignments: make(map[string]*assignment.Assignment),
		quotas:      make(map[quotaKey]*quota.DailyQuota),
		checkLogs:   make(map[string]*checklog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func now() time.Time { return time.Now().UTC() }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) UpsertRole(_ context.Context, r *role.Role) (*role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return copyRole(existing), nil
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return copyRole(r), nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name role.Name) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) ListRoles(_ context.Context) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		result = append(result, copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name.Rank() > result[j].Name.Rank() })
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) GetUserAssignment(_ context.Context, userID string) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[userID]
	if !ok {
		return nil, fmt.Errorf("assignment for %q: %w", userID, store.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) SetUserRole(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.assignments[a.UserID]; ok && current.Exclusive {
		return assignment.ErrExclusiveHeld
	}
	if a.Exclusive {
		return fmt.Errorf("set exclusive role for %q: %w", a.UserID, store.ErrConflict)
	}
	s.assignments[a.UserID] = copyAssignment(a)
	return nil
}

func (s *Store) ClaimExclusiveRole(_ context.Context, a *assignment.Assignment) (*assignment.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exclusive != "" {
		return copyAssignment(s.assignments[s.exclusive]), false, nil
	}
	c := copyAssignment(a)
	c.Exclusive = true
	s.assignments[a.UserID] = c
	s.exclusive = a.UserID
	return copyAssignment(c), true, nil
}

func (s *Store) GetExclusiveHolder(_ context.Context) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.exclusive == "" {
		return nil, fmt.Errorf("exclusive holder: %w", store.ErrNotFound)
	}
	return copyAssignment(s.assignments[s.exclusive]), nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil && filter.RoleName != "" && a.RoleName != filter.RoleName {
			continue
		}
		result = append(result, copyAssignment(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	var f assignment.ListFilter
	if filter != nil {
		f.RoleName = filter.RoleName
	}
	list, err := s.ListAssignments(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Quota Store
// ──────────────────────────────────────────────────

func (s *Store) GetDailyQuota(_ context.Context, userID, day string) (*quota.DailyQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotas[quotaKey{userID, day}]
	if !ok {
		return &quota.DailyQuota{UserID: userID, Day: day}, nil
	}
	return copyQuota(q), nil
}

func (s *Store) IncrementDailyQuota(_ context.Context, userID, day string, limit int) (*quota.DailyQuota, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := quotaKey{userID, day}
	q, ok := s.quotas[k]
	if !ok {
		t := now()
		q = &quota.DailyQuota{ID: id.NewQuotaID(), UserID: userID, Day: day, CreatedAt: t, UpdatedAt: t}
		s.quotas[k] = q
	}
	if q.SentCount >= limit {
		return copyQuota(q), false, nil
	}
	q.SentCount++
	q.UpdatedAt = now()
	return copyQuota(q), true, nil
}

func (s *Store) ListDailyQuotas(_ context.Context, filter *quota.ListFilter) ([]*quota.DailyQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*quota.DailyQuota, 0, len(s.quotas))
	for _, q := range s.quotas {
		if filter != nil {
			if filter.UserID != "" && q.UserID != filter.UserID {
				continue
			}
			if filter.Day != "" && q.Day != filter.Day {
				continue
			}
		}
		result = append(result, copyQuota(q))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Day != result[j].Day {
			return result[i].Day > result[j].Day
		}
		return result[i].UserID < result[j].UserID
	})
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) PurgeDailyQuotas(_ context.Context, beforeDay string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k := range s.quotas {
		if k.day < beforeDay {
			delete(s.quotas, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Settings Store
// ──────────────────────────────────────────────────

func (s *Store) GetEmailService(_ context.Context) (*settings.EmailService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.emailService == nil {
		return settings.Default(), nil
	}
	return s.emailService.Clone(), nil
}

func (s *Store) SaveEmailService(_ context.Context, e *settings.EmailService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current int64
	if s.emailService != nil {
		current = s.emailService.Version
	}
	if e.Version != current {
		return fmt.Errorf("email service at version %d, got %d: %w", current, e.Version, settings.ErrVersionConflict)
	}
	e.Version = current + 1
	s.emailService = e.Clone()
	return nil
}

// ──────────────────────────────────────────────────
// Check Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateCheckLog(_ context.Context, e *checklog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLogs[e.ID.String()] = copyCheckLog(e)
	return nil
}

func (s *Store) GetCheckLog(_ context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.checkLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("check log %s: %w", logID, store.ErrNotFound)
	}
	return copyCheckLog(e), nil
}

func (s *Store) ListCheckLogs(_ context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*checklog.Entry, 0, len(s.checkLogs))
	for _, e := range s.checkLogs {
		if filter != nil {
			if filter.Kind != "" && e.Kind != filter.Kind {
				continue
			}
			if filter.ActorID != "" && e.ActorID != filter.ActorID {
				continue
			}
			if filter.Allowed != nil && e.Allowed != *filter.Allowed {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyCheckLog(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	var f checklog.QueryFilter
	if filter != nil {
		f = *filter
		f.Limit, f.Offset = 0, 0
	}
	list, err := s.ListCheckLogs(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeCheckLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.checkLogs {
		if e.CreatedAt.Before(before) {
			delete(s.checkLogs, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func copyQuota(q *quota.DailyQuota) *quota.DailyQuota {
	c := *q
	return &c
}

func copyCheckLog(e *checklog.Entry) *checklog.Entry {
	c := *e
	return &c
}

func applyPagination[T any](items []*T, limit, offset int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
