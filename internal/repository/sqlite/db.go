// Package sqlite implements the repository interfaces on top of
// modernc.org/sqlite, a pure Go SQLite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with the pragmas the daemon relies on
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the database file at path
func NewDB(path string) (*DB, error) {
	// _time_format=sqlite stores time.Time values in a format SQLite's
	// own date functions understand, so STRFTIME over last_loaded_at
	// keeps working.
	db, err := sql.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during merge cycles
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// timeNow returns the current UTC time truncated to second precision
func timeNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// storeTime normalizes a timestamp before binding. Timestamps are bound
// as time.Time and scanned back the same way; second precision in UTC
// keeps the stored text comparable for MAX and STRFTIME.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
