package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pecadir/internal/domain"
)

// LiveChannelRepository implements repository.LiveChannelRepository for SQLite
type LiveChannelRepository struct {
	db *DB
}

// NewLiveChannelRepository creates a new LiveChannelRepository
func NewLiveChannelRepository(db *DB) *LiveChannelRepository {
	return &LiveChannelRepository{db: db}
}

// GetLatest retrieves the channels observed in the most recent load cycle
func (r *LiveChannelRepository) GetLatest(ctx context.Context) ([]*domain.LiveChannel, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+channelColumns+", is_latest, last_loaded_at, num_loaded FROM live_channels WHERE is_latest = 1",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest channels: %w", err)
	}
	defer rows.Close()

	var channels []*domain.LiveChannel
	for rows.Next() {
		ch, err := scanLiveChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest channels: %w", err)
	}

	return channels, nil
}

// GetByNameAndID retrieves a single live channel record
func (r *LiveChannelRepository) GetByNameAndID(ctx context.Context, name, id string) (*domain.LiveChannel, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+channelColumns+", is_latest, last_loaded_at, num_loaded FROM live_channels WHERE name = ? AND id = ?",
		name, id,
	)
	ch, err := scanLiveChannel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("live channel %s/%s: %w", name, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// SecondsSinceLastLoaded returns the age of the newest load cycle. An
// empty table yields the seconds since the Unix epoch, which any
// sensible reload guard treats as "load now".
func (r *LiveChannelRepository) SecondsSinceLastLoaded(ctx context.Context) (int64, error) {
	var seconds int64
	err := r.db.QueryRowContext(ctx,
		"SELECT STRFTIME('%s', 'now') - IFNULL(STRFTIME('%s', MAX(last_loaded_at)), 0) FROM live_channels",
	).Scan(&seconds)
	if err != nil {
		return 0, fmt.Errorf("failed to query last load age: %w", err)
	}
	return seconds, nil
}

// MergeLatest replaces the latest cycle with the given channels. Every
// incoming channel becomes the latest record for its (name, id) key;
// num_loaded counts consecutive appearances, so a channel that was in
// the immediately preceding cycle continues its streak and any other
// channel restarts at 1. An empty slice simply retires the previous
// cycle.
func (r *LiveChannelRepository) MergeLatest(ctx context.Context, channels []domain.Channel, loadedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	previous, err := latestStreaks(ctx, tx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE live_channels SET is_latest = 0 WHERE is_latest = 1"); err != nil {
		return fmt.Errorf("failed to retire previous cycle: %w", err)
	}

	loaded := storeTime(loadedAt)
	for i := range channels {
		ch := &channels[i]
		numLoaded := previous[channelKey(ch.Name, ch.ID)] + 1

		args := append(channelArgs(ch), 1, loaded, numLoaded)
		_, err := tx.ExecContext(ctx,
			"REPLACE INTO live_channels ("+channelColumns+", is_latest, last_loaded_at, num_loaded) VALUES ("+channelPlaceholders+", ?, ?, ?)",
			args...,
		)
		if err != nil {
			return fmt.Errorf("failed to merge channel %s: %w", ch.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteStale removes retired channels whose record has outlived its
// usefulness: older than twelve hours plus the channel's own uptime at
// the time it was last seen.
func (r *LiveChannelRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT name, id, age, last_loaded_at FROM live_channels WHERE is_latest = 0",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query retired channels: %w", err)
	}

	type key struct{ name, id string }
	var stale []key
	for rows.Next() {
		var k key
		var age string
		var loadedAt time.Time
		if err := rows.Scan(&k.name, &k.id, &age, &loadedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan retired channel: %w", err)
		}
		uptime := time.Duration(domain.ParseAgeMinutes(age)) * time.Minute
		if loadedAt.Before(now.Add(-12*time.Hour - uptime)) {
			stale = append(stale, k)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating retired channels: %w", err)
	}
	rows.Close()

	var deleted int64
	for _, k := range stale {
		res, err := tx.ExecContext(ctx, "DELETE FROM live_channels WHERE name = ? AND id = ?", k.name, k.id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete stale channel: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return deleted, nil
}

// latestStreaks snapshots num_loaded for the current latest cycle
func latestStreaks(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT name, id, num_loaded FROM live_channels WHERE is_latest = 1",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query current cycle: %w", err)
	}
	defer rows.Close()

	streaks := make(map[string]int)
	for rows.Next() {
		var name, id string
		var numLoaded int
		if err := rows.Scan(&name, &id, &numLoaded); err != nil {
			return nil, fmt.Errorf("failed to scan current cycle: %w", err)
		}
		streaks[channelKey(name, id)] = numLoaded
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating current cycle: %w", err)
	}

	return streaks, nil
}

func channelKey(name, id string) string {
	return name + "\x00" + id
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLiveChannel(row rowScanner) (*domain.LiveChannel, error) {
	var ch domain.LiveChannel
	dest := append(channelDest(&ch.Channel), &ch.IsLatest, &ch.LastLoadedAt, &ch.NumLoaded)
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan live channel: %w", err)
	}
	return &ch, nil
}
