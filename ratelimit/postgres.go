package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
)

const rateLimitTable = "push_rate_limits"

// CreateTableSQL is the schema PostgresStore expects.
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS push_rate_limits (
	rate_key   TEXT PRIMARY KEY,
	successful BIGINT NOT NULL DEFAULT 0,
	errors     BIGINT NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ NOT NULL
)`

// The upsert resets both counters when the stored window elapsed before $5 and
// otherwise adds the inserted deltas. Postgres row locking on the conflicting
// key makes it atomic per token.
const incrementSQL = `
	INSERT INTO push_rate_limits (rate_key, successful, errors, expires_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (rate_key)
	DO UPDATE SET
		successful = CASE WHEN push_rate_limits.expires_at <= $5
			THEN EXCLUDED.successful
			ELSE push_rate_limits.successful + EXCLUDED.successful END,
		errors = CASE WHEN push_rate_limits.expires_at <= $5
			THEN EXCLUDED.errors
			ELSE push_rate_limits.errors + EXCLUDED.errors END,
		expires_at = EXCLUDED.expires_at
	RETURNING successful, errors, expires_at
`

type rateLimitRow struct {
	Successful int64     `db:"successful"`
	Errors     int64     `db:"errors"`
	ExpiresAt  time.Time `db:"expires_at"`
}

// PostgresStore keeps records in the push_rate_limits table. Elapsed rows are
// reset in place by the next increment for the same token.
type PostgresStore struct {
	db *goqu.Database
}

func NewPostgresStore(db *goqu.Database) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Load(ctx context.Context, key string) (Record, error) {
	var row rateLimitRow
	found, err := p.db.From(rateLimitTable).
		Select("successful", "errors", "expires_at").
		Where(goqu.C("rate_key").Eq(key)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, nil
	}
	return Record(row), nil
}

func (p *PostgresStore) Increment(ctx context.Context, key string, kind Kind, now, expiresAt time.Time) (Record, error) {
	var successful, errs int64
	switch kind {
	case Successful:
		successful = 1
	case Error:
		errs = 1
	}

	var row rateLimitRow
	err := p.db.QueryRowContext(ctx, incrementSQL, key, successful, errs, expiresAt.UTC(), now.UTC()).
		Scan(&row.Successful, &row.Errors, &row.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.New("upsert returned no row")
	}
	if err != nil {
		return Record{}, err
	}
	return Record(row), nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
