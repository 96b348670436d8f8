package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
	DriverPgx     = "pgx"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to dsn and pings the database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	var db *sql.DB
	switch driver {
	case DriverSQLite, DriverSQLite3:
		var err error
		db, err = sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", driver, err)
		}
		// Single writer to prevent lock contention; also keeps ":memory:"
		// databases on one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case DriverPgx:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		db = stdlib.OpenDB(*cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// PlaceholderStyle is the bind parameter syntax of a driver.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// PlaceholderFor returns the placeholder style of driver.
func PlaceholderFor(driver string) PlaceholderStyle {
	if driver == DriverPgx {
		return PlaceholderDollar
	}
	return PlaceholderQuestion
}
