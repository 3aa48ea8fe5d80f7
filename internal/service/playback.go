package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"pecadir/internal/domain"
	"pecadir/internal/event"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
)

// PlaybackService hands channels to the local PeerCast node and keeps
// the playback history.
type PlaybackService struct {
	historyRepo repository.HistoryChannelRepository
	store       *event.Flow[domain.StoreChange]
	peercastURL string
	log         *logger.Logger
}

// NewPlaybackService creates a new PlaybackService
func NewPlaybackService(
	historyRepo repository.HistoryChannelRepository,
	store *event.Flow[domain.StoreChange],
	peercastURL string,
	log *logger.Logger,
) *PlaybackService {
	return &PlaybackService{
		historyRepo: historyRepo,
		store:       store,
		peercastURL: strings.TrimSuffix(peercastURL, "/"),
		log:         log,
	}
}

// StreamURL builds the local PeerCast playlist URL for a channel. The
// tip parameter tells the node which peer to pull the stream from.
func (p *PlaybackService) StreamURL(ch *domain.Channel) (string, error) {
	if !ch.IsPlayable() {
		return "", fmt.Errorf("channel %q has no playable id: %w", ch.Name, domain.ErrInvalidInput)
	}

	u := p.peercastURL + "/pls/" + url.PathEscape(ch.ID)
	if ch.IP != "" {
		u += "?tip=" + url.QueryEscape(ch.IP)
	}
	return u, nil
}

// RecordPlay stores the playback in history and announces the change
func (p *PlaybackService) RecordPlay(ctx context.Context, ch *domain.Channel, playedAt time.Time) error {
	if !ch.IsPlayable() {
		return fmt.Errorf("channel %q has no playable id: %w", ch.Name, domain.ErrInvalidInput)
	}

	if err := p.historyRepo.Add(ctx, ch, playedAt); err != nil {
		return err
	}

	p.log.Info("recorded playback", map[string]interface{}{
		"channel": ch.Name,
		"yp":      ch.YpName,
	})
	p.store.Publish(domain.StoreChange{})
	return nil
}
