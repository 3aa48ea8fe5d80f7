package sqlite

import (
	"context"
	"fmt"
	"time"

	"pecadir/internal/domain"
)

// HistoryChannelRepository implements repository.HistoryChannelRepository for SQLite
type HistoryChannelRepository struct {
	db *DB
}

// NewHistoryChannelRepository creates a new HistoryChannelRepository
func NewHistoryChannelRepository(db *DB) *HistoryChannelRepository {
	return &HistoryChannelRepository{db: db}
}

// Add records a playback. A replay of the same (name, id) replaces the
// old record so the history keeps one row per channel identity.
func (r *HistoryChannelRepository) Add(ctx context.Context, ch *domain.Channel, playedAt time.Time) error {
	args := append(channelArgs(ch), storeTime(playedAt))
	_, err := r.db.ExecContext(ctx,
		"REPLACE INTO history_channels ("+channelColumns+", last_played_at) VALUES ("+channelPlaceholders+", ?)",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to record playback: %w", err)
	}
	return nil
}

// GetAll retrieves the playback history, most recent first
func (r *HistoryChannelRepository) GetAll(ctx context.Context) ([]*domain.HistoryChannel, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+channelColumns+", last_played_at FROM history_channels ORDER BY last_played_at DESC, name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []*domain.HistoryChannel
	for rows.Next() {
		var ch domain.HistoryChannel
		dest := append(channelDest(&ch.Channel), &ch.LastPlayedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan history channel: %w", err)
		}
		history = append(history, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}

// Truncate keeps only the most recently played records
func (r *HistoryChannelRepository) Truncate(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM history_channels
		WHERE (name, id) NOT IN (
			SELECT name, id FROM history_channels
			ORDER BY last_played_at DESC, name
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to truncate history: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
