package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var fs embed.FS

type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// goose keeps its base FS and dialect in package state.
var mu sync.Mutex

// Run applies all pending migrations for dialect against db.
func Run(db *sql.DB, dialect Dialect) error {
	dir := "sqlite"
	if dialect == Postgres {
		dir = "postgres"
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(fs)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
