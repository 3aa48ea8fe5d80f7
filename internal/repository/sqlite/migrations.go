package sqlite

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			CREATE TABLE IF NOT EXISTS yellow_pages (
				name TEXT PRIMARY KEY,
				url TEXT NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT 1
			);

			CREATE TABLE IF NOT EXISTS live_channels (
				name TEXT NOT NULL,
				id TEXT NOT NULL,
				ip TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				genre TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				listeners INTEGER NOT NULL DEFAULT 0,
				relays INTEGER NOT NULL DEFAULT 0,
				bitrate INTEGER NOT NULL DEFAULT 0,
				type TEXT NOT NULL DEFAULT '',
				track_artist TEXT NOT NULL DEFAULT '',
				track_album TEXT NOT NULL DEFAULT '',
				track_title TEXT NOT NULL DEFAULT '',
				track_contact TEXT NOT NULL DEFAULT '',
				name_url TEXT NOT NULL DEFAULT '',
				age TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				direct TEXT NOT NULL DEFAULT '',
				yp_name TEXT NOT NULL DEFAULT '',
				yp_url TEXT NOT NULL DEFAULT '',
				is_latest BOOLEAN NOT NULL DEFAULT 0,
				last_loaded_at DATETIME NOT NULL,
				num_loaded INTEGER NOT NULL DEFAULT 1,
				PRIMARY KEY (name, id)
			);

			CREATE INDEX IF NOT EXISTS idx_live_channels_is_latest ON live_channels(is_latest);

			CREATE TABLE IF NOT EXISTS history_channels (
				name TEXT NOT NULL,
				id TEXT NOT NULL,
				ip TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				genre TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				listeners INTEGER NOT NULL DEFAULT 0,
				relays INTEGER NOT NULL DEFAULT 0,
				bitrate INTEGER NOT NULL DEFAULT 0,
				type TEXT NOT NULL DEFAULT '',
				track_artist TEXT NOT NULL DEFAULT '',
				track_album TEXT NOT NULL DEFAULT '',
				track_title TEXT NOT NULL DEFAULT '',
				track_contact TEXT NOT NULL DEFAULT '',
				name_url TEXT NOT NULL DEFAULT '',
				age TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				direct TEXT NOT NULL DEFAULT '',
				yp_name TEXT NOT NULL DEFAULT '',
				yp_url TEXT NOT NULL DEFAULT '',
				last_played_at DATETIME NOT NULL,
				PRIMARY KEY (name, id)
			);

			CREATE INDEX IF NOT EXISTS idx_history_channels_last_played_at ON history_channels(last_played_at);

			CREATE TABLE IF NOT EXISTS favorites (
				name TEXT PRIMARY KEY,
				pattern TEXT NOT NULL,
				flags TEXT NOT NULL DEFAULT '{}',
				enabled BOOLEAN NOT NULL DEFAULT 1
			);

			CREATE TABLE IF NOT EXISTS notified_channels (
				id TEXT PRIMARY KEY,
				notified_at DATETIME NOT NULL
			);
		`,
	},
}

// Migrate runs all pending migrations
func Migrate(db *sql.DB) error {
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			migration.Version,
			migration.Name,
			timeNow(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// getCurrentVersion returns the current schema version
func getCurrentVersion(db *sql.DB) (int, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query version: %w", err)
	}
	return version, nil
}
