package ratelimit

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

const defaultPrefix = "push:ratelimit:"

// Limiter tracks per device token daily counts on top of a Store.
type Limiter struct {
	store    Store
	prefix   string
	maximum  int64
	timeout  time.Duration
	now      func() time.Time
	recorder MetricsRecorder
}

type Option func(*Limiter)

// WithPrefix sets the key prefix (default "push:ratelimit:").
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		l.prefix = prefix
	}
}

// WithMaximum overrides DefaultDailyMaximum.
func WithMaximum(maximum int64) Option {
	return func(l *Limiter) {
		if maximum > 0 {
			l.maximum = maximum
		}
	}
}

// WithTimeout bounds each store call. Zero leaves the caller's context as is.
func WithTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		l.timeout = d
	}
}

func WithRecorder(r MetricsRecorder) Option {
	return func(l *Limiter) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithClock replaces time.Now, mostly for tests that cross a day boundary.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: nil store")
	}
	l := &Limiter{
		store:    store,
		prefix:   defaultPrefix,
		maximum:  DefaultDailyMaximum,
		now:      time.Now,
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Maximum() int64 {
	return l.maximum
}

// CurrentWindowExpiry is the boundary every reader and writer agrees on right now.
func (l *Limiter) CurrentWindowExpiry() time.Time {
	return WindowExpiry(l.now())
}

// Key maps a push token to its opaque store key.
func (l *Limiter) Key(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return l.prefix + hex.EncodeToString(sum[:])
}

// Read returns today's record for token. An elapsed or missing record reads as
// zero counts with the current window expiry; nothing is written back.
func (l *Limiter) Read(ctx context.Context, token string) (Record, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rec, err := l.store.Load(ctx, l.Key(token))
	l.observe("read", start, err)
	if err != nil {
		return Record{}, fmt.Errorf("ratelimit: read: %w", err)
	}

	now := l.now()
	if rec.Expired(now) {
		return Record{ExpiresAt: WindowExpiry(now)}, nil
	}
	return rec, nil
}

// Increment atomically adds one to the kind counter for token and returns the
// updated record.
func (l *Limiter) Increment(ctx context.Context, token string, kind Kind) (Record, error) {
	if kind != Successful && kind != Error {
		return Record{}, fmt.Errorf("ratelimit: unknown kind %q", kind)
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	now := l.now()
	start := time.Now()
	rec, err := l.store.Increment(ctx, l.Key(token), kind, now, WindowExpiry(now))
	l.observe("increment", start, err)
	if err != nil {
		return Record{}, fmt.Errorf("ratelimit: increment: %w", err)
	}
	return rec, nil
}

func (l *Limiter) Ping(ctx context.Context) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	return l.store.Ping(ctx)
}

func (l *Limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

func (l *Limiter) observe(op string, start time.Time, err error) {
	tags := map[string]string{"op": op}
	l.recorder.Add("ratelimit.call", 1, tags)
	if err != nil {
		l.recorder.Add("ratelimit.error", 1, tags)
	}
	l.recorder.Observe("ratelimit.latency", time.Since(start).Seconds(), tags)
}
