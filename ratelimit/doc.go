// Package ratelimit tracks how many pushes each device token sent today.
//
// Every token has a Record with two counters, Successful and Errors, that
// belong to the current UTC day. The window is never scheduled: it is always
// WindowExpiry(time.Now()), the next UTC midnight, so every reader and writer
// on every instance agrees on it without coordination.
//
//	rec, err := limiter.Increment(ctx, token, ratelimit.Successful)
//
// # Windows
//
// A stored record whose ExpiresAt is not after "now" is stale. Read reports it
// as a zero record carrying the current expiry and leaves storage untouched.
// Increment resets it inside the store, as part of the same atomic operation
// that adds to the counter, and writes the new expiry.
//
// # Backends
//
// The Limiter delegates atomicity to its Store:
//
//   - RedisStore: a hash per token updated by a Lua script (reset, HINCRBY,
//     EXPIREAT). Keys expire at the window boundary, so Redis reclaims stale
//     tokens on its own.
//   - PostgresStore: one row per token in push_rate_limits, updated with a
//     single INSERT ... ON CONFLICT DO UPDATE ... RETURNING statement.
//   - MemoryStore: a per-key locked map for tests and single-instance
//     development. It does not share state across replicas.
//
// # Keys
//
// Tokens are never stored verbatim. Key hashes the token with BLAKE2b-256 and
// prepends the configured prefix (default "push:ratelimit:").
//
// # Errors
//
// Store failures are returned wrapped; the Limiter never substitutes a zero
// record for a failed read, so callers can tell "nothing sent today" from
// "cannot tell".
//
// # Maximum
//
// Maximum is advisory. The Limiter reports Remaining and ExceedsMaximum but
// never refuses an Increment.
package ratelimit
