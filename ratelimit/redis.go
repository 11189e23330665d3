package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed increment.lua
var incrementScriptSource string

var incrementScript = redis.NewScript(incrementScriptSource)

// RedisStore keeps each record in a Redis hash whose key expires at the
// window boundary. Increments run as a Lua script so the reset/increment/expire
// cycle is atomic across every relay instance sharing the Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	values, err := r.client.HMGet(ctx, key, "successful", "errors", "expires_at").Result()
	if err != nil {
		return Record{}, err
	}
	if len(values) != 3 {
		return Record{}, errors.New("invalid HMGET response")
	}
	return Record{
		Successful: toInt64(values[0]),
		Errors:     toInt64(values[1]),
		ExpiresAt:  unixOrZero(toInt64(values[2])),
	}, nil
}

func (r *RedisStore) Increment(ctx context.Context, key string, kind Kind, now, expiresAt time.Time) (Record, error) {
	result, err := incrementScript.Run(ctx, r.client, []string{key},
		string(kind),     // ARGV[1]
		now.Unix(),       // ARGV[2]
		expiresAt.Unix(), // ARGV[3]
	).Result()
	if err != nil {
		return Record{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return Record{}, errors.New("invalid lua response format")
	}
	return Record{
		Successful: toInt64(values[0]),
		Errors:     toInt64(values[1]),
		ExpiresAt:  unixOrZero(toInt64(values[2])),
	}, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func toInt64(val interface{}) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	default:
		return 0
	}
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
