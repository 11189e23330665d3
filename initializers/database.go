package initializers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PushRelay/ratelimit"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/lib/pq"
)

var DB *goqu.Database

// ConnectDB opens the Postgres pool and makes sure the rate limit table exists.
func ConnectDB(ctx context.Context, dsn string) (*goqu.Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	DB = goqu.New("postgres", db)

	if _, err := DB.ExecContext(ctx, ratelimit.CreateTableSQL); err != nil {
		return nil, fmt.Errorf("create rate limit table: %w", err)
	}
	return DB, nil
}
