// Package mongo provides a MongoDB implementation of the mailwarden
// composite store. Reads go through grove; conditional writes use the
// driver collections directly.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/mailwarden/assignment"
	"github.com/xraph/mailwarden/checklog"
	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/quota"
	"github.com/xraph/mailwarden/role"
	"github.com/xraph/mailwarden/settings"
	"github.com/xraph/mailwarden/store"
)

// Collection name constants.
const (
	colRoles       = "mailwarden_roles"
	colAssignments = "mailwarden_assignments"
	colDailyQuotas = "mailwarden_daily_quotas"
	colSettings    = "mailwarden_settings"
	colCheckLogs   = "mailwarden_check_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite mailwarden store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all mailwarden collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("mailwarden/mongo: migrate %s indexes: %w", col, err)
		}
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

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections. The
// partial unique index on exclusive allows a single owner document.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoles: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAssignments: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "exclusive", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"exclusive": true}),
			},
			{Keys: bson.D{{Key: "role_name", Value: 1}}},
		},
		colDailyQuotas: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "day", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "day", Value: -1}}},
		},
		colCheckLogs: {
			{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertRole(ctx context.Context, r *role.Role) (*role.Role, error) {
	_, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
		bson.M{"name": string(r.Name)},
		bson.M{"$setOnInsert": bson.M{
			"_id":         r.ID.String(),
			"description": r.Description,
			"created_at":  r.CreatedAt,
			"updated_at":  r.UpdatedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil && !mongod.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("mailwarden: upsert role: %w", err)
	}
	return s.GetRoleByName(ctx, r.Name)
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name role.Name) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": string(name)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) ListRoles(ctx context.Context) ([]*role.Role, error) {
	var models []roleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
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
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("assignment for %q: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

// upsertAssignment writes a over the user's non-exclusive document. When the
// user's document is exclusive the filter misses and the upsert's insert
// collides with the unique user_id index.
func (s *Store) upsertAssignment(ctx context.Context, a *assignment.Assignment, exclusive bool) error {
	_, err := s.mdb.Collection(colAssignments).UpdateOne(ctx,
		bson.M{"user_id": a.UserID, "exclusive": bson.M{"$ne": true}},
		bson.M{
			"$set": bson.M{
				"role_id":    a.RoleID.String(),
				"role_name":  string(a.RoleName),
				"exclusive":  exclusive,
				"granted_by": a.GrantedBy,
				"created_at": a.CreatedAt,
			},
			"$setOnInsert": bson.M{"_id": a.ID.String()},
		},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// upsertAttempts bounds retries of an assignment upsert that lost an insert
// race on user_id. The upsert filter is not a pure equality match, so the
// server does not retry it.
const upsertAttempts = 2

// errHolderFound stops a claim retry once the exclusive holder is known.
var errHolderFound = errors.New("exclusive holder found")

// upsertWithRetry runs upsert and, after a duplicate-key failure, asks
// resolve what the conflict means. A nil result from resolve retries.
func upsertWithRetry(upsert func() error, resolve func() error) error {
	for attempt := 1; ; attempt++ {
		err := upsert()
		if err == nil || !mongod.IsDuplicateKeyError(err) {
			return err
		}
		if rerr := resolve(); rerr != nil {
			return rerr
		}
		if attempt >= upsertAttempts {
			return err
		}
	}
}

func (s *Store) SetUserRole(ctx context.Context, a *assignment.Assignment) error {
	if a.Exclusive {
		return fmt.Errorf("set exclusive role for %q: %w", a.UserID, store.ErrConflict)
	}
	err := upsertWithRetry(
		func() error { return s.upsertAssignment(ctx, a, false) },
		func() error {
			current, err := s.GetUserAssignment(ctx, a.UserID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				return nil
			case err != nil:
				return err
			case current.Exclusive:
				return assignment.ErrExclusiveHeld
			}
			return nil
		},
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assignment.ErrExclusiveHeld):
		return err
	case mongod.IsDuplicateKeyError(err):
		return fmt.Errorf("set user role for %q: %w", a.UserID, store.ErrConflict)
	default:
		return fmt.Errorf("mailwarden: set user role: %w", err)
	}
}

func (s *Store) ClaimExclusiveRole(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, bool, error) {
	var holder *assignment.Assignment
	err := upsertWithRetry(
		func() error { return s.upsertAssignment(ctx, a, true) },
		func() error {
			h, err := s.GetExclusiveHolder(ctx)
			if errors.Is(err, store.ErrNotFound) {
				// The duplicate was the user's own row created concurrently.
				return nil
			}
			if err != nil {
				return err
			}
			holder = h
			return errHolderFound
		},
	)
	if errors.Is(err, errHolderFound) {
		return holder, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: claim exclusive role: %w", err)
	}
	claimed, err := s.GetUserAssignment(ctx, a.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("mailwarden: claim exclusive role: %w", err)
	}
	return claimed, true, nil
}

func (s *Store) GetExclusiveHolder(ctx context.Context) (*assignment.Assignment, error) {
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"exclusive": true}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("exclusive holder: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get exclusive holder: %w", err)
	}
	return assignmentFromModel(&m), nil
}

func assignmentFilter(filter *assignment.ListFilter) bson.M {
	f := bson.M{}
	if filter != nil && filter.RoleName != "" {
		f["role_name"] = string(filter.RoleName)
	}
	return f
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.mdb.NewFind(&models).
		Filter(assignmentFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*assignmentModel)(nil)).
		Filter(assignmentFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: count assignments: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Quota operations
// ──────────────────────────────────────────────────

func (s *Store) GetDailyQuota(ctx context.Context, userID, day string) (*quota.DailyQuota, error) {
	var m dailyQuotaModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID, "day": day}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return &quota.DailyQuota{UserID: userID, Day: day}, nil
		}
		return nil, fmt.Errorf("mailwarden: get daily quota: %w", err)
	}
	return dailyQuotaFromModel(&m), nil
}

func (s *Store) IncrementDailyQuota(ctx context.Context, userID, day string, limit int) (*quota.DailyQuota, bool, error) {
	col := s.mdb.Collection(colDailyQuotas)
	t := now()

	_, err := col.UpdateOne(ctx,
		bson.M{"user_id": userID, "day": day},
		bson.M{"$setOnInsert": bson.M{
			"_id":        id.NewQuotaID().String(),
			"sent_count": 0,
			"created_at": t,
			"updated_at": t,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	// A concurrent upsert of the same row loses on the unique index.
	if err != nil && !mongod.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("mailwarden: create daily quota: %w", err)
	}

	var m dailyQuotaModel
	err = col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "day": day, "sent_count": bson.M{"$lt": limit}},
		bson.M{
			"$inc": bson.M{"sent_count": 1},
			"$set": bson.M{"updated_at": t},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if !isNoDocuments(err) {
			return nil, false, fmt.Errorf("mailwarden: increment daily quota: %w", err)
		}
		row, gerr := s.GetDailyQuota(ctx, userID, day)
		if gerr != nil {
			return nil, false, gerr
		}
		return row, false, nil
	}
	return dailyQuotaFromModel(&m), true, nil
}

func (s *Store) ListDailyQuotas(ctx context.Context, filter *quota.ListFilter) ([]*quota.DailyQuota, error) {
	var models []dailyQuotaModel
	f := bson.M{}
	if filter != nil {
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.Day != "" {
			f["day"] = filter.Day
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "day", Value: -1}, {Key: "user_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	res, err := s.mdb.NewDelete((*dailyQuotaModel)(nil)).
		Many().
		Filter(bson.M{"day": bson.M{"$lt": beforeDay}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge daily quotas: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Settings operations
// ──────────────────────────────────────────────────

func (s *Store) GetEmailService(ctx context.Context) (*settings.EmailService, error) {
	var m settingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": emailServiceKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return settings.Default(), nil
		}
		return nil, fmt.Errorf("mailwarden: get email service: %w", err)
	}
	return emailServiceFromModel(&m), nil
}

func (s *Store) SaveEmailService(ctx context.Context, e *settings.EmailService) error {
	m := emailServiceToModel(e)
	expected := e.Version
	m.Version = expected + 1
	col := s.mdb.Collection(colSettings)
	fields := bson.M{
		"enabled":     m.Enabled,
		"api_key":     m.APIKey,
		"role_limits": m.RoleLimits,
		"version":     m.Version,
		"updated_by":  m.UpdatedBy,
		"updated_at":  m.UpdatedAt,
	}

	if expected == 0 {
		fields["_id"] = emailServiceKey
		if _, err := col.InsertOne(ctx, fields); err != nil {
			if mongod.IsDuplicateKeyError(err) {
				return fmt.Errorf("email service version %d: %w", expected, settings.ErrVersionConflict)
			}
			return fmt.Errorf("mailwarden: save email service: %w", err)
		}
		e.Version = m.Version
		return nil
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": emailServiceKey, "version": expected},
		bson.M{"$set": fields},
	)
	if err != nil {
		return fmt.Errorf("mailwarden: save email service: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("email service version %d: %w", expected, settings.ErrVersionConflict)
	}
	e.Version = m.Version
	return nil
}

// ──────────────────────────────────────────────────
// Check log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	if _, err := s.mdb.NewInsert(checkLogToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("mailwarden: create check log: %w", err)
	}
	return nil
}

func (s *Store) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	var m checkLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("check log %s: %w", logID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("mailwarden: get check log: %w", err)
	}
	return checkLogFromModel(&m), nil
}

func checkLogFilter(filter *checklog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Kind != "" {
		f["kind"] = string(filter.Kind)
	}
	if filter.ActorID != "" {
		f["actor_id"] = filter.ActorID
	}
	if filter.Allowed != nil {
		f["allowed"] = *filter.Allowed
	}
	if filter.After != nil || filter.Before != nil {
		created := bson.M{}
		if filter.After != nil {
			created["$gte"] = *filter.After
		}
		if filter.Before != nil {
			created["$lte"] = *filter.Before
		}
		f["created_at"] = created
	}
	return f
}

func (s *Store) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var models []checkLogModel
	q := s.mdb.NewFind(&models).
		Filter(checkLogFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*checkLogModel)(nil)).
		Filter(checkLogFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: count check logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*checkLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("mailwarden: purge check logs: %w", err)
	}
	return res.DeletedCount(), nil
}
