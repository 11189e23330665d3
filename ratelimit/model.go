package ratelimit

import (
	"context"
	"time"
)

// DefaultDailyMaximum bounds successful+errors per device token per UTC day.
const DefaultDailyMaximum int64 = 500

// Kind selects which counter an increment applies to.
type Kind string

const (
	Successful Kind = "successful"
	Error      Kind = "errors"
)

// Record is the per-token state for the current window.
type Record struct {
	Successful int64
	Errors     int64
	ExpiresAt  time.Time
}

func (r Record) Total() int64 {
	return r.Successful + r.Errors
}

// Remaining is never negative; a token past the maximum reports zero.
func (r Record) Remaining(maximum int64) int64 {
	if left := maximum - r.Total(); left > 0 {
		return left
	}
	return 0
}

func (r Record) ExceedsMaximum(maximum int64) bool {
	return r.Total() > maximum
}

// Expired reports whether the record's window has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store persists records. Implementations must make Increment atomic per key
// and must reset the counters when the stored window has elapsed at now.
type Store interface {
	// Load returns the stored record, or a zero Record if the key is absent.
	Load(ctx context.Context, key string) (Record, error)
	Increment(ctx context.Context, key string, kind Kind, now, expiresAt time.Time) (Record, error)
	Ping(ctx context.Context) error
}

// WindowExpiry returns the first UTC midnight strictly after now.
func WindowExpiry(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
