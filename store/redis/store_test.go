package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowExpiryOutlivesItsDay(t *testing.T) {
	dayStart := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	want := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)

	for now := dayStart; now.Before(dayStart.Add(24 * time.Hour)); now = now.Add(61 * time.Minute) {
		at, ok := rowExpiry("2026-10-18", time.Hour, now)
		if assert.True(t, ok, "at %s", now) {
			assert.Equal(t, want, at, "at %s", now)
		}
	}

	lastSecond := dayStart.Add(24*time.Hour - time.Second)
	at, ok := rowExpiry("2026-10-18", time.Minute, lastSecond)
	assert.True(t, ok)
	assert.True(t, at.After(lastSecond))
}

func TestRowExpiryWithoutRetention(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for _, retention := range []time.Duration{0, -time.Hour} {
		_, ok := rowExpiry("2026-10-18", retention, now)
		assert.False(t, ok, "retention %s", retention)
	}
}

func TestRowExpiryPastOrInvalidDay(t *testing.T) {
	now := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	_, ok := rowExpiry("2026-10-18", time.Hour, now)
	assert.False(t, ok)

	_, ok = rowExpiry("not-a-day", time.Hour, now)
	assert.False(t, ok)
}
