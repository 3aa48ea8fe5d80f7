package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"pecadir/internal/domain"
)

// FavoriteRepository implements repository.FavoriteRepository for SQLite
type FavoriteRepository struct {
	db *DB
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Upsert inserts or replaces a favorite rule
func (r *FavoriteRepository) Upsert(ctx context.Context, fav *domain.Favorite) error {
	flags, err := domain.MarshalFlags(fav.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode favorite flags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"REPLACE INTO favorites (name, pattern, flags, enabled) VALUES (?, ?, ?, ?)",
		fav.Name, fav.Pattern, flags, fav.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert favorite: %w", err)
	}
	return nil
}

// GetByName retrieves a favorite rule by name
func (r *FavoriteRepository) GetByName(ctx context.Context, name string) (*domain.Favorite, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT name, pattern, flags, enabled FROM favorites WHERE name = ?",
		name,
	)
	fav, err := scanFavorite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("favorite %s: %w", name, domain.ErrNotFound)
	}
	return fav, err
}

// GetAll retrieves every favorite rule
func (r *FavoriteRepository) GetAll(ctx context.Context) ([]*domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, pattern, flags, enabled FROM favorites ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []*domain.Favorite
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, fav)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}

	return favorites, nil
}

// Delete removes a favorite rule
func (r *FavoriteRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM favorites WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

func scanFavorite(row rowScanner) (*domain.Favorite, error) {
	var fav domain.Favorite
	var flags string
	if err := row.Scan(&fav.Name, &fav.Pattern, &flags, &fav.Enabled); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan favorite: %w", err)
	}
	fav.Flags = domain.UnmarshalFlags(flags)
	return &fav, nil
}
