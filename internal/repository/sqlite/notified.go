package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NotifiedChannelRepository implements repository.NotifiedChannelRepository for SQLite
type NotifiedChannelRepository struct {
	db *DB
}

// NewNotifiedChannelRepository creates a new NotifiedChannelRepository
func NewNotifiedChannelRepository(db *DB) *NotifiedChannelRepository {
	return &NotifiedChannelRepository{db: db}
}

// Add marks channel IDs as announced
func (r *NotifiedChannelRepository) Add(ctx context.Context, ids []string, notifiedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	at := storeTime(notifiedAt)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"REPLACE INTO notified_channels (id, notified_at) VALUES (?, ?)",
			id, at,
		); err != nil {
			return fmt.Errorf("failed to record notified channel: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List returns every announced channel ID
func (r *NotifiedChannelRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM notified_channels ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query notified channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notified channel: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notified channels: %w", err)
	}

	return ids, nil
}

// Retain drops announced IDs that are no longer on air, keeping the
// table bounded by the size of the live set
func (r *NotifiedChannelRepository) Retain(ctx context.Context, liveIDs []string) (int64, error) {
	if len(liveIDs) == 0 {
		res, err := r.db.ExecContext(ctx, "DELETE FROM notified_channels")
		if err != nil {
			return 0, fmt.Errorf("failed to clear notified channels: %w", err)
		}
		deleted, _ := res.RowsAffected()
		return deleted, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(liveIDs)), ", ")
	args := make([]any, len(liveIDs))
	for i, id := range liveIDs {
		args[i] = id
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM notified_channels WHERE id NOT IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to retain notified channels: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
