// Package task contains the periodic sync pipeline that keeps the
// channel directory current.
package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pecadir/internal/domain"
	"pecadir/internal/event"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
	"pecadir/internal/yp4g"
)

const (
	// historyKeep is how many playback records survive truncation
	historyKeep = 100

	// reloadGuard suppresses fetches when the newest cycle is younger
	// than this, so restarts and manual refreshes stay polite to the
	// yellow pages.
	reloadGuard = 15 * time.Minute
)

// RunResult describes one pipeline run
type RunResult struct {
	RunID      string
	Forced     bool
	Skipped    bool
	Channels   int
	Notified   int
	SourceErrs []error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline runs the three sync stages: truncate aged records, fetch
// and merge the yellow pages, then announce new favorite channels.
type Pipeline struct {
	ypRepo       repository.YellowPageRepository
	liveRepo     repository.LiveChannelRepository
	historyRepo  repository.HistoryChannelRepository
	favoriteRepo repository.FavoriteRepository
	notifiedRepo repository.NotifiedChannelRepository

	client   *yp4g.Client
	store    *event.Flow[domain.StoreChange]
	runs     *event.Flow[RunResult]
	sink     domain.NotificationSink
	log      *logger.Logger
	hostPort string
	notify   bool

	// One run at a time; overlapping merges would corrupt streaks.
	mu sync.Mutex
}

// NewPipeline creates a sync pipeline. hostPort identifies the local
// peer towards the yellow pages. sink may be nil to disable
// notifications regardless of the notify flag.
func NewPipeline(
	ypRepo repository.YellowPageRepository,
	liveRepo repository.LiveChannelRepository,
	historyRepo repository.HistoryChannelRepository,
	favoriteRepo repository.FavoriteRepository,
	notifiedRepo repository.NotifiedChannelRepository,
	client *yp4g.Client,
	store *event.Flow[domain.StoreChange],
	sink domain.NotificationSink,
	hostPort string,
	notify bool,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		ypRepo:       ypRepo,
		liveRepo:     liveRepo,
		historyRepo:  historyRepo,
		favoriteRepo: favoriteRepo,
		notifiedRepo: notifiedRepo,
		client:       client,
		store:        store,
		runs:         event.NewFlow[RunResult](),
		sink:         sink,
		log:          log,
		hostPort:     hostPort,
		notify:       notify && sink != nil,
	}
}

// Runs exposes the stream of finished pipeline runs
func (p *Pipeline) Runs() *event.Flow[RunResult] {
	return p.runs
}

// Run executes one pipeline cycle. force bypasses the reload guard.
// A finished RunResult is always published, even when the run fails.
func (p *Pipeline) Run(ctx context.Context, force bool) (result *RunResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result = &RunResult{
		RunID:     uuid.NewString(),
		Forced:    force,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		p.runs.Publish(*result)
	}()

	p.log.Debug("sync run starting", map[string]interface{}{
		"run_id": result.RunID,
		"forced": force,
	})

	p.truncate(ctx)

	if !force {
		seconds, err := p.liveRepo.SecondsSinceLastLoaded(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to check reload guard: %w", err)
		}
		if time.Duration(seconds)*time.Second < reloadGuard {
			result.Skipped = true
			p.log.Debug("sync run skipped by reload guard", map[string]interface{}{
				"run_id":      result.RunID,
				"age_seconds": seconds,
			})
			return result, nil
		}
	}

	channels, sourceErrs := p.fetchAll(ctx)
	result.SourceErrs = sourceErrs
	if len(channels) == 0 && len(sourceErrs) > 0 {
		// Every source failed; keep the previous cycle on display
		// rather than merging an empty one.
		return result, fmt.Errorf("all yellow pages failed: %w", sourceErrs[0])
	}

	if err := p.liveRepo.MergeLatest(ctx, channels, time.Now().UTC()); err != nil {
		return result, fmt.Errorf("failed to merge channels: %w", err)
	}
	result.Channels = len(channels)
	p.store.Publish(domain.StoreChange{})

	if len(channels) == 0 {
		// Nothing on air anywhere. Leave the announced set untouched so
		// a transient empty cycle cannot cause re-announcements once the
		// channels come back.
		p.log.Info("sync run finished with empty cycle", map[string]interface{}{
			"run_id": result.RunID,
			"errors": len(sourceErrs),
		})
		return result, nil
	}

	notified, err := p.announce(ctx)
	result.Notified = notified
	if err != nil {
		return result, fmt.Errorf("notification stage failed: %w", err)
	}

	p.log.Info("sync run finished", map[string]interface{}{
		"run_id":   result.RunID,
		"channels": result.Channels,
		"errors":   len(sourceErrs),
		"notified": notified,
	})
	return result, nil
}

// truncate ages out history and stale live records. Failures here are
// logged and do not stop the run.
func (p *Pipeline) truncate(ctx context.Context) {
	if deleted, err := p.historyRepo.Truncate(ctx, historyKeep); err != nil {
		p.log.Warn("failed to truncate history", map[string]interface{}{"error": err.Error()})
	} else if deleted > 0 {
		p.log.Debug("truncated history", map[string]interface{}{"deleted": deleted})
	}

	if deleted, err := p.liveRepo.DeleteStale(ctx, time.Now().UTC()); err != nil {
		p.log.Warn("failed to delete stale channels", map[string]interface{}{"error": err.Error()})
	} else if deleted > 0 {
		p.log.Debug("deleted stale channels", map[string]interface{}{"deleted": deleted})
	}
}

// fetchAll downloads every enabled yellow page concurrently. A failing
// source contributes an error but never blocks the others.
func (p *Pipeline) fetchAll(ctx context.Context) ([]domain.Channel, []error) {
	pages, err := p.ypRepo.GetEnabled(ctx)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to list yellow pages: %w", err)}
	}

	var (
		mu       sync.Mutex
		channels []domain.Channel
		errs     []error
		wg       sync.WaitGroup
	)

	for _, yp := range pages {
		wg.Add(1)
		go func(yp domain.YellowPage) {
			defer wg.Done()

			fetched, err := p.client.FetchIndex(ctx, yp, p.hostPort)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", yp.Name, err))
				p.log.Warn("yellow page fetch failed", map[string]interface{}{
					"yp":    yp.Name,
					"error": err.Error(),
				})
				return
			}
			channels = append(channels, fetched...)
		}(*yp)
	}
	wg.Wait()

	return channels, errs
}

// announce finds channels that just appeared and match a notification
// rule, then emits one aggregated announcement covering every
// already-announced channel still on air, youngest first.
func (p *Pipeline) announce(ctx context.Context) (int, error) {
	latest, err := p.liveRepo.GetLatest(ctx)
	if err != nil {
		return 0, err
	}

	liveIDs := make([]string, 0, len(latest))
	for _, ch := range latest {
		if ch.IsPlayable() {
			liveIDs = append(liveIDs, ch.ID)
		}
	}

	if !p.notify {
		// Keep the announced set bounded even while muted.
		_, err := p.notifiedRepo.Retain(ctx, liveIDs)
		return 0, err
	}

	favorites, err := p.favoriteRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	var rules, ng []*domain.Favorite
	for _, fav := range favorites {
		if !fav.Enabled {
			continue
		}
		switch {
		case fav.Flags.IsNG:
			ng = append(ng, fav)
		case fav.Flags.IsNotification:
			rules = append(rules, fav)
		}
	}

	known := make(map[string]bool)
	if ids, err := p.notifiedRepo.List(ctx); err == nil {
		for _, id := range ids {
			known[id] = true
		}
	} else {
		return 0, err
	}

	var fresh []string
	for _, ch := range latest {
		if ch.NumLoaded != 1 || !ch.IsPlayable() || known[ch.ID] {
			continue
		}
		if !p.matchesAny(rules, &ch.Channel) || p.matchesAny(ng, &ch.Channel) {
			continue
		}
		fresh = append(fresh, ch.ID)
		known[ch.ID] = true
	}

	if len(fresh) > 0 {
		if err := p.notifiedRepo.Add(ctx, fresh, time.Now().UTC()); err != nil {
			return 0, err
		}

		var announced []*domain.LiveChannel
		for _, ch := range latest {
			if known[ch.ID] && ch.IsPlayable() {
				announced = append(announced, ch)
			}
		}
		sort.SliceStable(announced, func(i, j int) bool {
			return domain.ParseAgeMinutes(announced[i].Age) < domain.ParseAgeMinutes(announced[j].Age)
		})

		if err := p.sink.NotifyNewChannels(announced); err != nil {
			return len(fresh), err
		}
	}

	if _, err := p.notifiedRepo.Retain(ctx, liveIDs); err != nil {
		return len(fresh), err
	}
	return len(fresh), nil
}

func (p *Pipeline) matchesAny(favorites []*domain.Favorite, ch *domain.Channel) bool {
	for _, fav := range favorites {
		matched, err := fav.Matches(ch)
		if err != nil {
			p.log.Warn("favorite rule failed to evaluate", map[string]interface{}{
				"favorite": fav.Name,
				"error":    err.Error(),
			})
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
