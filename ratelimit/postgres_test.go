package ratelimit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a mock database wrapped in goqu's postgres dialect
func setupTestDB(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	store := NewPostgresStore(goqu.New("postgres", db))
	cleanup := func() {
		db.Close()
	}
	return store, mock, cleanup
}

func TestPostgresStore_Load(t *testing.T) {
	expiry := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		queryErr error
		expected Record
		wantErr  bool
	}{
		{
			name:     "existing record",
			rows:     sqlmock.NewRows([]string{"successful", "errors", "expires_at"}).AddRow(int64(7), int64(2), expiry),
			expected: Record{Successful: 7, Errors: 2, ExpiresAt: expiry},
		},
		{
			name:     "missing record reads as zero",
			rows:     sqlmock.NewRows([]string{"successful", "errors", "expires_at"}),
			expected: Record{},
		},
		{
			name:     "database unavailable",
			queryErr: errors.New("connection refused"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, cleanup := setupTestDB(t)
			defer cleanup()

			expect := mock.ExpectQuery(regexp.QuoteMeta(`SELECT "successful", "errors", "expires_at" FROM "push_rate_limits"`))
			if tt.queryErr != nil {
				expect.WillReturnError(tt.queryErr)
			} else {
				expect.WillReturnRows(tt.rows)
			}

			rec, err := store.Load(context.Background(), "push:ratelimit:abc")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, rec)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_Increment(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	expiry := WindowExpiry(now)

	tests := []struct {
		name       string
		kind       Kind
		successful int64
		errs       int64
		returned   Record
	}{
		{
			name:       "successful send",
			kind:       Successful,
			successful: 1,
			returned:   Record{Successful: 3, Errors: 1, ExpiresAt: expiry},
		},
		{
			name:     "failed send",
			kind:     Error,
			errs:     1,
			returned: Record{Successful: 0, Errors: 1, ExpiresAt: expiry},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, cleanup := setupTestDB(t)
			defer cleanup()

			mock.ExpectQuery("INSERT INTO push_rate_limits").
				WithArgs("push:ratelimit:abc", tt.successful, tt.errs, expiry, now).
				WillReturnRows(sqlmock.NewRows([]string{"successful", "errors", "expires_at"}).
					AddRow(tt.returned.Successful, tt.returned.Errors, tt.returned.ExpiresAt))

			rec, err := store.Increment(context.Background(), "push:ratelimit:abc", tt.kind, now, expiry)
			require.NoError(t, err)
			assert.Equal(t, tt.returned, rec)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_IncrementError(t *testing.T) {
	store, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO push_rate_limits").WillReturnError(errors.New("connection reset"))

	now := time.Now()
	_, err := store.Increment(context.Background(), "key", Successful, now, WindowExpiry(now))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithLimiter(t *testing.T) {
	store, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	limiter, err := NewLimiter(store, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	// A row left over from yesterday reads as a fresh window.
	stale := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"successful", "errors", "expires_at"}).AddRow(int64(90), int64(4), stale))

	rec, err := limiter.Read(context.Background(), "device")
	require.NoError(t, err)
	assert.Equal(t, Record{ExpiresAt: WindowExpiry(now)}, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	store, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
