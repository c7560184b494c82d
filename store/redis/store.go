// Package redis stores daily quota rows in Redis. It implements quota.Store
// only and is meant to be combined with a composite store through
// mailwarden.WithQuotaStore.
//
// Each (user, day) row is a hash. The compare-and-increment runs as a Lua
// script, so it is atomic per row without client-side locking. A row expires
// at the end of its UTC day plus the retention window; with no retention it
// is kept until PurgeDailyQuotas removes it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/mailwarden/id"
	"github.com/xraph/mailwarden/quota"
)

// Compile-time interface check.
var _ quota.Store = (*Store)(nil)

const (
	defaultPrefix    = "mailwarden:quota:"
	defaultRetention = 90 * 24 * time.Hour
	scanCount        = 256
)

// incrementScript adds one to sent_count when it is below ARGV[1].
// KEYS[1] row key; ARGV: limit, expiry unix seconds (0 = none), unix nanos,
// new row id. Returns {incremented (0|1), sent_count}.
var incrementScript = goredis.NewScript(`
local n = tonumber(redis.call('HGET', KEYS[1], 'sent_count') or '0')
if n >= tonumber(ARGV[1]) then
  return {0, n}
end
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'id', ARGV[4], 'created_at', ARGV[3])
  if tonumber(ARGV[2]) > 0 then
    redis.call('EXPIREAT', KEYS[1], ARGV[2])
  end
end
n = redis.call('HINCRBY', KEYS[1], 'sent_count', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return {1, n}
`)

// Store is a Redis-backed quota.Store.
type Store struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to "mailwarden:quota:".
func WithPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// WithRetention sets how long a row outlives the end of its day. Zero or
// less keeps rows until they are purged.
func WithRetention(d time.Duration) Option { return func(s *Store) { s.retention = d } }

// WithClock sets the time source for row timestamps and expiry.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a store on an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix, retention: defaultRetention, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	if url == "" {
		return nil, errors.New("redis: url is empty")
	}
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := goredis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return New(c, opts...), nil
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(userID, day string) string {
	return s.prefix + day + ":" + userID
}

// parseKey splits a row key into day and user. Days never contain ':'.
func (s *Store) parseKey(key string) (day, userID string, ok bool) {
	rest, found := strings.CutPrefix(key, s.prefix)
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, ":")
}

func (s *Store) GetDailyQuota(ctx context.Context, userID, day string) (*quota.DailyQuota, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID, day)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get daily quota: %w", err)
	}
	return rowFromHash(userID, day, fields), nil
}

func (s *Store) IncrementDailyQuota(ctx context.Context, userID, day string, limit int) (*quota.DailyQuota, bool, error) {
	now := s.now().UTC()
	var expireAt int64
	if at, ok := rowExpiry(day, s.retention, now); ok {
		expireAt = at.Unix()
	}
	res, err := incrementScript.Run(ctx, s.client,
		[]string{s.key(userID, day)},
		limit,
		expireAt,
		now.UnixNano(),
		id.NewQuotaID().String(),
	).Int64Slice()
	if err != nil {
		return nil, false, fmt.Errorf("redis: increment daily quota: %w", err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("redis: increment daily quota: unexpected reply %v", res)
	}

	q := &quota.DailyQuota{UserID: userID, Day: day, SentCount: int(res[1]), UpdatedAt: now}
	return q, res[0] == 1, nil
}

func (s *Store) ListDailyQuotas(ctx context.Context, filter *quota.ListFilter) ([]*quota.DailyQuota, error) {
	match := s.prefix + "*"
	if filter != nil && filter.Day != "" {
		match = s.prefix + filter.Day + ":*"
	}

	var result []*quota.DailyQuota
	err := s.scan(ctx, match, func(key string) error {
		day, userID, ok := s.parseKey(key)
		if !ok || (filter != nil && filter.UserID != "" && userID != filter.UserID) {
			return nil
		}
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil // expired between SCAN and HGETALL
		}
		result = append(result, rowFromHash(userID, day, fields))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: list daily quotas: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Day != result[j].Day {
			return result[i].Day > result[j].Day
		}
		return result[i].UserID < result[j].UserID
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) PurgeDailyQuotas(ctx context.Context, beforeDay string) (int64, error) {
	var stale []string
	err := s.scan(ctx, s.prefix+"*", func(key string) error {
		if day, _, ok := s.parseKey(key); ok && day < beforeDay {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis: purge daily quotas: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: purge daily quotas: %w", err)
	}
	return n, nil
}

func (s *Store) scan(ctx context.Context, match string, fn func(key string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := fn(k); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// rowExpiry returns when the row for day may expire: the end of that UTC
// day plus retention. It reports false when rows are kept indefinitely or
// when that moment has already passed, leaving such rows to
// PurgeDailyQuotas.
func rowExpiry(day string, retention time.Duration, now time.Time) (time.Time, bool) {
	if retention <= 0 {
		return time.Time{}, false
	}
	start, err := time.Parse(quota.DayLayout, day)
	if err != nil {
		return time.Time{}, false
	}
	at := start.AddDate(0, 0, 1).Add(retention)
	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}

func rowFromHash(userID, day string, fields map[string]string) *quota.DailyQuota {
	q := &quota.DailyQuota{UserID: userID, Day: day}
	if len(fields) == 0 {
		return q
	}
	q.ID = id.Stored(fields["id"])
	q.SentCount, _ = strconv.Atoi(fields["sent_count"]) //nolint:errcheck // written by HINCRBY
	q.CreatedAt = unixNanos(fields["created_at"])
	q.UpdatedAt = unixNanos(fields["updated_at"])
	return q
}

func unixNanos(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func paginate(items []*quota.DailyQuota, limit, offset int) []*quota.DailyQuota {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
