package service

import (
	"context"
	"fmt"
	"sync"

	"pecadir/internal/domain"
	"pecadir/internal/event"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
)

// FilterEngine turns the directory store into ordered, filtered views.
// Parameter changes and store writes both trigger a recompute; an
// in-flight recompute is cancelled first, and results are published in
// restart order, so subscribers only ever see the newest view.
type FilterEngine struct {
	liveRepo    repository.LiveChannelRepository
	historyRepo repository.HistoryChannelRepository
	log         *logger.Logger

	results *event.Flow[domain.FilteredList]

	mu     sync.Mutex
	params domain.FilterParams
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce    sync.Once
	stopCh      chan struct{}
	storeCancel func()
	wg          sync.WaitGroup
}

// NewFilterEngine creates a FilterEngine with default parameters
func NewFilterEngine(
	liveRepo repository.LiveChannelRepository,
	historyRepo repository.HistoryChannelRepository,
	log *logger.Logger,
) *FilterEngine {
	return &FilterEngine{
		liveRepo:    liveRepo,
		historyRepo: historyRepo,
		log:         log,
		results:     event.NewFlow[domain.FilteredList](),
		stopCh:      make(chan struct{}),
	}
}

// Results exposes the stream of filtered views
func (f *FilterEngine) Results() *event.Flow[domain.FilteredList] {
	return f.results
}

// Params returns the current filter parameters
func (f *FilterEngine) Params() domain.FilterParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Start subscribes the engine to store changes and computes the initial view
func (f *FilterEngine) Start(store *event.Flow[domain.StoreChange]) {
	changes, cancel := store.Subscribe()
	f.storeCancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-f.stopCh:
				return
			case <-changes:
				f.Refresh()
			}
		}
	}()

	f.Refresh()
}

// Stop cancels any in-flight recompute and detaches from the store
func (f *FilterEngine) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	if f.storeCancel != nil {
		f.storeCancel()
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	done := f.done
	f.mu.Unlock()

	if done != nil {
		<-done
	}
	f.wg.Wait()
}

// SetParams replaces the filter parameters and recomputes the view
func (f *FilterEngine) SetParams(params domain.FilterParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	f.restartLocked()
}

// Refresh recomputes the view with the current parameters
func (f *FilterEngine) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartLocked()
}

// restartLocked cancels the in-flight recompute and starts a new one.
// The new goroutine waits for its predecessor to wind down before
// publishing, which serializes publishes in restart order.
func (f *FilterEngine) restartLocked() {
	if f.cancel != nil {
		f.cancel()
	}
	previous := f.done

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	params := f.params

	go func() {
		defer close(done)
		if previous != nil {
			<-previous
		}

		list, err := f.Compute(ctx, params)
		if err != nil {
			if ctx.Err() == nil {
				f.log.Error("failed to compute filtered view", map[string]interface{}{
					"source": params.Source.String(),
					"error":  err.Error(),
				})
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		f.results.Publish(*list)
	}()
}

// Compute builds one filtered view synchronously
func (f *FilterEngine) Compute(ctx context.Context, params domain.FilterParams) (*domain.FilteredList, error) {
	var entries []domain.DirectoryEntry
	var err error

	switch params.Source {
	case domain.SourceHistory:
		entries, err = f.historyEntries(ctx)
	default:
		entries, err = f.liveEntries(ctx)
	}
	if err != nil {
		return nil, err
	}

	tokens := SplitQuery(params.SearchQuery)
	filtered := entries[:0]
	for i := range entries {
		entry := &entries[i]
		if params.Selector != nil && !params.Selector(entry) {
			continue
		}
		if len(tokens) > 0 && !MatchesQuery(entry.SearchText(), tokens) {
			continue
		}
		filtered = append(filtered, *entry)
	}

	params.Order.Sort(filtered)

	return &domain.FilteredList{Channels: filtered, Params: params}, nil
}

func (f *FilterEngine) liveEntries(ctx context.Context) ([]domain.DirectoryEntry, error) {
	latest, err := f.liveRepo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live channels: %w", err)
	}

	entries := make([]domain.DirectoryEntry, 0, len(latest))
	for _, ch := range latest {
		entries = append(entries, domain.DirectoryEntry{
			Channel:   ch.Channel,
			Kind:      domain.KindLive,
			NumLoaded: ch.NumLoaded,
			Playable:  ch.IsPlayable(),
		})
	}
	return entries, nil
}

// historyEntries joins history rows against the latest live set. A
// history channel that is on air again carries the live record's fresh
// listener counts and becomes playable.
func (f *FilterEngine) historyEntries(ctx context.Context) ([]domain.DirectoryEntry, error) {
	history, err := f.historyRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	latest, err := f.liveRepo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live channels: %w", err)
	}
	onAir := make(map[string]*domain.LiveChannel, len(latest))
	for _, ch := range latest {
		onAir[ch.Name+"\x00"+ch.ID] = ch
	}

	entries := make([]domain.DirectoryEntry, 0, len(history))
	for _, h := range history {
		entry := domain.DirectoryEntry{
			Channel:      h.Channel,
			Kind:         domain.KindHistory,
			LastPlayedAt: h.LastPlayedAt,
		}
		if live, ok := onAir[h.Name+"\x00"+h.ID]; ok {
			entry.Channel = live.Channel
			entry.NumLoaded = live.NumLoaded
			entry.Playable = live.IsPlayable()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
