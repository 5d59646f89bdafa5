// Package archivedb records the outcome of every archive run in a local
// SQLite database.
package archivedb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"archiver/internal/logger"
)

const (
	driverName = "sqlite"
	// sqlx and goose know the sqlite bind style under this name.
	sqlDialect = "sqlite3"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	dbLogger = logger.Get("DB")
)

// gooseLogger routes goose output through the package logger.
type gooseLogger struct {
	log logger.Logger
}

func (g gooseLogger) Fatal(v ...any) { g.log.Emit(logger.ERROR, "%s", fmt.Sprint(v...)) }
func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Emit(logger.ERROR, format, v...)
}
func (g gooseLogger) Print(v ...any)   { g.log.Emit(logger.DEBUG, "%s", fmt.Sprint(v...)) }
func (g gooseLogger) Println(v ...any) { g.log.Emit(logger.DEBUG, "%s", fmt.Sprintln(v...)) }
func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Emit(logger.DEBUG, format, v...)
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	rawDB, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer at a time, sqlite would answer SQLITE_BUSY otherwise
	rawDB.SetMaxOpenConns(1)

	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}

	if err := migrate(rawDB); err != nil {
		rawDB.Close()
		return nil, err
	}

	dbLogger.Emit(logger.DEBUG, "Archive database ready at %s", path)
	return newStore(sqlx.NewDb(rawDB, sqlDialect)), nil
}

// migrate runs the embedded migrations in the migrations dir of this package.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{dbLogger})
	if err := goose.SetDialect(sqlDialect); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}
	return nil
}
