package repository

import (
	"context"
	"time"

	"pecadir/internal/domain"
)

// YellowPageRepository handles yellow page directory persistence
type YellowPageRepository interface {
	Upsert(ctx context.Context, yp *domain.YellowPage) error
	GetByName(ctx context.Context, name string) (*domain.YellowPage, error)
	GetAll(ctx context.Context) ([]*domain.YellowPage, error)
	GetEnabled(ctx context.Context) ([]*domain.YellowPage, error)
	Delete(ctx context.Context, name string) error
}

// LiveChannelRepository handles live channel persistence
type LiveChannelRepository interface {
	GetLatest(ctx context.Context) ([]*domain.LiveChannel, error)
	GetByNameAndID(ctx context.Context, name, id string) (*domain.LiveChannel, error)
	SecondsSinceLastLoaded(ctx context.Context) (int64, error)
	MergeLatest(ctx context.Context, channels []domain.Channel, loadedAt time.Time) error
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// HistoryChannelRepository handles playback history persistence
type HistoryChannelRepository interface {
	Add(ctx context.Context, ch *domain.Channel, playedAt time.Time) error
	GetAll(ctx context.Context) ([]*domain.HistoryChannel, error)
	Truncate(ctx context.Context, keep int) (int64, error)
}

// FavoriteRepository handles favorite rule persistence
type FavoriteRepository interface {
	Upsert(ctx context.Context, fav *domain.Favorite) error
	GetByName(ctx context.Context, name string) (*domain.Favorite, error)
	GetAll(ctx context.Context) ([]*domain.Favorite, error)
	Delete(ctx context.Context, name string) error
}

// NotifiedChannelRepository tracks channel IDs that have already been
// announced so repeated load cycles stay quiet
type NotifiedChannelRepository interface {
	Add(ctx context.Context, ids []string, notifiedAt time.Time) error
	List(ctx context.Context) ([]string, error)
	Retain(ctx context.Context, liveIDs []string) (int64, error)
}
