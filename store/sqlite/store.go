// Package sqlite provides a SQLite implementation of the mailwarden
// composite store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

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

// assignmentUpsert replaces a user's row unless it is exclusive. A claim of
// the exclusive role by a second user trips the partial unique index instead.
const assignmentUpsert = `(user_id) DO UPDATE SET
    id = excluded.id,
    role_id = excluded.role_id,
    role_name = excluded.role_name,
    exclusive = excluded.exclusive,
    granted_by = excluded.granted_by,
    created_at = excluded.created_at
WHERE mailwarden_assignments.exclusive = 0`

// Store is a SQLite implementation of the composite mailwarden store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("mailwarden/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("mailwarden/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches SQLITE_CONSTRAINT_UNIQUE as reported by the
// driver. The extended code is not exposed through grove.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertRole(ctx context.Context, r *role.Role) (*role.Role, error) {
	_, err := s.sdb.NewInsert(roleToModel(r)).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("mailwarden: upsert role: %w", err)
	}
	return s.GetRoleByName(ctx, r.Name)
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name role.Name) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("name = ?", string(name)).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) ListRoles(ctx context.Context) ([]*role.Role, error) {
	var models []roleModel
	if err := s.sdb.NewSelect(&models).OrderExpr("created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("mailwarden: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) GetUserAssignment(ctx context.Context, userID string) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.sdb.NewSelect(m).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("assignment for %q: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get assignment: %w", err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) SetUserRole(ctx context.Context, a *assignment.Assignment) error {
	if a.Exclusive {
		return fmt.Errorf("set exclusive role for %q: %w", a.UserID, store.ErrConflict)
	}
	res, err := s.sdb.NewInsert(assignmentToModel(a)).
		OnConflict(assignmentUpsert).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mailwarden: set user role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mailwarden: set user role rows: %w", err)
	}
	if n == 0 {
		return assignment.ErrExclusiveHeld
	}
	return nil
}

func (s *Store) ClaimExclusiveRole(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, bool, error) {
	m := assignmentToModel(a)
	m.Exclusive = true
	res, err := s.sdb.NewInsert(m).
		OnConflict(assignmentUpsert).
		Exec(ctx)
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("mailwarden: claim exclusive role: %w", err)
		}
		holder, herr := s.GetExclusiveHolder(ctx)
		if herr != nil {
			return nil, false, fmt.Errorf("mailwarden: claim exclusive role: %w", herr)
		}
		return holder, false, nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: claim exclusive role rows: %w", err)
	}
	if n == 0 {
		// The caller already holds it.
		holder, err := s.GetUserAssignment(ctx, a.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("mailwarden: claim exclusive role: %w", err)
		}
		return holder, false, nil
	}
	return assignmentFromModel(m), true, nil
}

func (s *Store) GetExclusiveHolder(ctx context.Context) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.sdb.NewSelect(m).Where("exclusive = ?", true).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("exclusive holder: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get exclusive holder: %w", err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.RoleName != "" {
			q = q.Where("role_name = ?", string(filter.RoleName))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("mailwarden: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*assignmentModel)(nil))
	if filter != nil && filter.RoleName != "" {
		q = q.Where("role_name = ?", string(filter.RoleName))
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: count assignments: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Quota operations
// ──────────────────────────────────────────────────

func (s *Store) GetDailyQuota(ctx context.Context, userID, day string) (*quota.DailyQuota, error) {
	m := new(dailyQuotaModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("day = ?", day).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &quota.DailyQuota{UserID: userID, Day: day}, nil
		}
		return nil, fmt.Errorf("mailwarden: get daily quota: %w", err)
	}
	return dailyQuotaFromModel(m), nil
}

func (s *Store) IncrementDailyQuota(ctx context.Context, userID, day string, limit int) (*quota.DailyQuota, bool, error) {
	now := time.Now().UTC()
	_, err := s.sdb.NewInsert(&dailyQuotaModel{
		ID:        id.NewQuotaID().String(),
		UserID:    userID,
		Day:       day,
		CreatedAt: now,
		UpdatedAt: now,
	}).OnConflict("(user_id, day) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: create daily quota: %w", err)
	}

	res, err := s.sdb.NewUpdate((*dailyQuotaModel)(nil)).
		Set("sent_count = sent_count + 1").
		Set("updated_at = ?", now).
		Where("user_id = ?", userID).
		Where("day = ?", day).
		Where("sent_count < ?", limit).
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: increment daily quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: increment daily quota rows: %w", err)
	}

	row, err := s.GetDailyQuota(ctx, userID, day)
	if err != nil {
		return nil, false, err
	}
	return row, n == 1, nil
}

func (s *Store) ListDailyQuotas(ctx context.Context, filter *quota.ListFilter) ([]*quota.DailyQuota, error) {
	var models []dailyQuotaModel
	q := s.sdb.NewSelect(&models).OrderExpr("day DESC, user_id ASC")
	if filter != nil {
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Day != "" {
			q = q.Where("day = ?", filter.Day)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("mailwarden: list daily quotas: %w", err)
	}
	result := make([]*quota.DailyQuota, len(models))
	for i := range models {
		result[i] = dailyQuotaFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeDailyQuotas(ctx context.Context, beforeDay string) (int64, error) {
	res, err := s.sdb.NewDelete((*dailyQuotaModel)(nil)).
		Where("day < ?", beforeDay).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge daily quotas: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge daily quotas rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Settings operations
// ──────────────────────────────────────────────────

func (s *Store) GetEmailService(ctx context.Context) (*settings.EmailService, error) {
	m := new(settingModel)
	err := s.sdb.NewSelect(m).Where("name = ?", emailServiceKey).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return settings.Default(), nil
		}
		return nil, fmt.Errorf("mailwarden: get email service: %w", err)
	}
	e, err := emailServiceFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("mailwarden: get email service: %w", err)
	}
	return e, nil
}

func (s *Store) SaveEmailService(ctx context.Context, e *settings.EmailService) error {
	m, err := emailServiceToModel(e)
	if err != nil {
		return fmt.Errorf("mailwarden: save email service: %w", err)
	}
	expected := e.Version
	m.Version = expected + 1

	var n int64
	if expected == 0 {
		n, err = s.insertEmailService(ctx, m)
	} else {
		n, err = s.updateEmailService(ctx, m, expected)
	}
	if err != nil {
		return fmt.Errorf("mailwarden: save email service: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("email service version %d: %w", expected, settings.ErrVersionConflict)
	}
	e.Version = m.Version
	return nil
}

func (s *Store) insertEmailService(ctx context.Context, m *settingModel) (int64, error) {
	res, err := s.sdb.NewInsert(m).OnConflict("(name) DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) updateEmailService(ctx context.Context, m *settingModel, expected int64) (int64, error) {
	res, err := s.sdb.NewUpdate((*settingModel)(nil)).
		Set("enabled = ?", m.Enabled).
		Set("api_key = ?", m.APIKey).
		Set("role_limits = ?", m.RoleLimits).
		Set("version = ?", m.Version).
		Set("updated_by = ?", m.UpdatedBy).
		Set("updated_at = ?", m.UpdatedAt).
		Where("name = ?", emailServiceKey).
		Where("version = ?", expected).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ──────────────────────────────────────────────────
// Check log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	if _, err := s.sdb.NewInsert(checkLogToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("mailwarden: create check log: %w", err)
	}
	return nil
}

func (s *Store) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	m := new(checkLogModel)
	err := s.sdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("check log %s: %w", logID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get check log: %w", err)
	}
	return checkLogFromModel(m), nil
}

func (s *Store) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var models []checkLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("mailwarden: list check logs: %w", err)
	}
	result := make([]*checklog.Entry, len(models))
	for i := range models {
		result[i] = checkLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*checkLogModel)(nil))
	if filter != nil {
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: count check logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*checkLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge check logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge check logs rows: %w", err)
	}
	return n, nil
}
