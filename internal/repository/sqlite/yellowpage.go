package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"pecadir/internal/domain"
)

// YellowPageRepository implements repository.YellowPageRepository for SQLite
type YellowPageRepository struct {
	db *DB
}

// NewYellowPageRepository creates a new YellowPageRepository
func NewYellowPageRepository(db *DB) *YellowPageRepository {
	return &YellowPageRepository{db: db}
}

// Upsert inserts or replaces a yellow page entry
func (r *YellowPageRepository) Upsert(ctx context.Context, yp *domain.YellowPage) error {
	if !domain.IsValidYellowPageURL(yp.URL) {
		return fmt.Errorf("yellow page url %q: %w", yp.URL, domain.ErrInvalidInput)
	}

	_, err := r.db.ExecContext(ctx,
		"REPLACE INTO yellow_pages (name, url, enabled) VALUES (?, ?, ?)",
		yp.Name, yp.URL, yp.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert yellow page: %w", err)
	}
	return nil
}

// GetByName retrieves a yellow page by name
func (r *YellowPageRepository) GetByName(ctx context.Context, name string) (*domain.YellowPage, error) {
	var yp domain.YellowPage
	err := r.db.QueryRowContext(ctx,
		"SELECT name, url, enabled FROM yellow_pages WHERE name = ?",
		name,
	).Scan(&yp.Name, &yp.URL, &yp.Enabled)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("yellow page %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query yellow page: %w", err)
	}
	return &yp, nil
}

// GetAll retrieves every yellow page entry
func (r *YellowPageRepository) GetAll(ctx context.Context) ([]*domain.YellowPage, error) {
	return r.query(ctx, "SELECT name, url, enabled FROM yellow_pages ORDER BY name")
}

// GetEnabled retrieves the yellow pages that participate in load cycles
func (r *YellowPageRepository) GetEnabled(ctx context.Context) ([]*domain.YellowPage, error) {
	return r.query(ctx, "SELECT name, url, enabled FROM yellow_pages WHERE enabled = 1 ORDER BY name")
}

// Delete removes a yellow page entry
func (r *YellowPageRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM yellow_pages WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete yellow page: %w", err)
	}
	return nil
}

func (r *YellowPageRepository) query(ctx context.Context, q string) ([]*domain.YellowPage, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query yellow pages: %w", err)
	}
	defer rows.Close()

	var pages []*domain.YellowPage
	for rows.Next() {
		var yp domain.YellowPage
		if err := rows.Scan(&yp.Name, &yp.URL, &yp.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan yellow page: %w", err)
		}
		pages = append(pages, &yp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating yellow pages: %w", err)
	}

	return pages, nil
}
