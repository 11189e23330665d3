package initializers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PushRelay/ratelimit"
)

// NewRateLimitStore connects the backend selected by RATE_LIMIT_STORE.
func NewRateLimitStore(ctx context.Context, cfg *Config) (ratelimit.Store, error) {
	switch cfg.RateLimitStore {
	case StoreRedis:
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("rate limit store connected", slog.String("store", StoreRedis))
		return ratelimit.NewRedisStore(client), nil
	case StorePostgres:
		db, err := ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("rate limit store connected", slog.String("store", StorePostgres))
		return ratelimit.NewPostgresStore(db), nil
	case StoreMemory:
		slog.Warn("using in-memory rate limit store; counts are not shared between instances")
		return ratelimit.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.RateLimitStore)
	}
}

// NewLimiter wraps store with the configured prefix, maximum and timeout.
func NewLimiter(store ratelimit.Store, cfg *Config, recorder ratelimit.MetricsRecorder) (*ratelimit.Limiter, error) {
	return ratelimit.NewLimiter(store,
		ratelimit.WithPrefix(cfg.RateLimitKeyPrefix),
		ratelimit.WithMaximum(cfg.PushDailyMaximum),
		ratelimit.WithTimeout(cfg.RateLimitTimeout),
		ratelimit.WithRecorder(recorder),
	)
}
