// Package store implements scoreboard.Store on SQLite, Postgres and Redis.
//
// Every backend applies the merge rule inside a single store operation
// (a conditional upsert, or a Lua script on Redis) so concurrent submits
// for the same key cannot lower a stored score.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/alamicos/scoreboard/internal/database"
	"github.com/alamicos/scoreboard/internal/migrations"
	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// Backend is a scoreboard.Store with a lifecycle.
type Backend interface {
	scoreboard.Store
	Check(ctx context.Context) error
	Close() error
}

// Open connects to the backing store named by driver, runs migrations
// where the store has a schema, and returns it.
func Open(ctx context.Context, driver, url string) (Backend, error) {
	switch driver {
	case "sqlite":
		db, err := database.Open(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db, migrations.SQLite); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating sqlite: %w", err)
		}
		return NewSQLiteStore(db), nil

	case "postgres":
		pool, err := database.OpenPostgres(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		// Closing db releases its connections back to pool without closing it.
		db := stdlib.OpenDBFromPool(pool)
		err = migrations.Run(db, migrations.Postgres)
		db.Close()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		return NewPostgresStore(pool), nil

	case "redis":
		rdb, err := database.OpenRedis(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(rdb, "scoreboard"), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// updateClause returns the columns a winning attempt overwrites and the
// comparison it must pass. BestPerName rows keep their display name.
func updateClause(b scoreboard.Board) (set, op string) {
	set = "score = excluded.score, updated_at = excluded.updated_at"
	if b.Rule() == scoreboard.ReplaceIfGreaterOrEqual {
		op = ">="
	} else {
		op = ">"
	}
	if b.Variant == scoreboard.BestPerAttempt {
		set = "client_id = excluded.client_id, name = excluded.name, name_lower = excluded.name_lower, " + set
	}
	return set, op
}

func outcome(revision int64) scoreboard.Outcome {
	if revision == 1 {
		return scoreboard.Inserted
	}
	return scoreboard.Updated
}
