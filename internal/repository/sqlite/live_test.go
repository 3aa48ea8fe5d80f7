package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pecadir/internal/domain"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := NewDB(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to open database: %v", err)
	}

	if err := Migrate(db.DB); err != nil {
		db.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(tmpFile.Name())
	})

	return db
}

// makeChannel builds a channel with plausible defaults
func makeChannel(name, id string) domain.Channel {
	return domain.Channel{
		Name:        name,
		ID:          id,
		Genre:       "music",
		Description: "test stream",
		Listeners:   5,
		Relays:      2,
		Bitrate:     192,
		Type:        "FLV",
		Age:         "1:00",
		YpName:      "SP",
		YpURL:       "http://sp.example.com/",
	}
}

func TestLiveChannelRepository_FirstCycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	channels := []domain.Channel{
		makeChannel("alpha", "00000000000000000000000000000001"),
		makeChannel("beta", "00000000000000000000000000000002"),
	}
	if err := repo.MergeLatest(ctx, channels, timeNow()); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 latest channels, got %d", len(latest))
	}
	for _, ch := range latest {
		if !ch.IsLatest {
			t.Errorf("channel %s should be latest", ch.Name)
		}
		if ch.NumLoaded != 1 {
			t.Errorf("channel %s: expected num_loaded 1, got %d", ch.Name, ch.NumLoaded)
		}
	}
}

func TestLiveChannelRepository_StreakAcrossCycles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	stays := makeChannel("stays", "00000000000000000000000000000001")
	leaves := makeChannel("leaves", "00000000000000000000000000000002")
	arrives := makeChannel("arrives", "00000000000000000000000000000003")

	if err := repo.MergeLatest(ctx, []domain.Channel{stays, leaves}, timeNow()); err != nil {
		t.Fatalf("failed to merge first cycle: %v", err)
	}
	if err := repo.MergeLatest(ctx, []domain.Channel{stays, arrives}, timeNow()); err != nil {
		t.Fatalf("failed to merge second cycle: %v", err)
	}

	got, err := repo.GetByNameAndID(ctx, stays.Name, stays.ID)
	if err != nil {
		t.Fatalf("failed to get channel: %v", err)
	}
	if got.NumLoaded != 2 {
		t.Errorf("continuing channel: expected num_loaded 2, got %d", got.NumLoaded)
	}

	got, err = repo.GetByNameAndID(ctx, arrives.Name, arrives.ID)
	if err != nil {
		t.Fatalf("failed to get channel: %v", err)
	}
	if got.NumLoaded != 1 {
		t.Errorf("new channel: expected num_loaded 1, got %d", got.NumLoaded)
	}

	// The channel that went away stays queryable but is retired.
	got, err = repo.GetByNameAndID(ctx, leaves.Name, leaves.ID)
	if err != nil {
		t.Fatalf("failed to get channel: %v", err)
	}
	if got.IsLatest {
		t.Error("departed channel should not be latest")
	}
}

func TestLiveChannelRepository_GapResetsStreak(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	ch := makeChannel("comeback", "00000000000000000000000000000001")

	if err := repo.MergeLatest(ctx, []domain.Channel{ch}, timeNow()); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}
	if err := repo.MergeLatest(ctx, nil, timeNow()); err != nil {
		t.Fatalf("failed to merge empty cycle: %v", err)
	}
	if err := repo.MergeLatest(ctx, []domain.Channel{ch}, timeNow()); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	got, err := repo.GetByNameAndID(ctx, ch.Name, ch.ID)
	if err != nil {
		t.Fatalf("failed to get channel: %v", err)
	}
	if got.NumLoaded != 1 {
		t.Errorf("expected streak reset to 1 after a gap, got %d", got.NumLoaded)
	}
}

func TestLiveChannelRepository_EmptyMergeRetiresCycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	ch := makeChannel("alpha", "00000000000000000000000000000001")
	if err := repo.MergeLatest(ctx, []domain.Channel{ch}, timeNow()); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}
	if err := repo.MergeLatest(ctx, nil, timeNow()); err != nil {
		t.Fatalf("failed to merge empty cycle: %v", err)
	}

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if len(latest) != 0 {
		t.Fatalf("expected no latest channels after empty cycle, got %d", len(latest))
	}
}

func TestLiveChannelRepository_SecondsSinceLastLoaded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	// Empty table reads as "never loaded".
	seconds, err := repo.SecondsSinceLastLoaded(ctx)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if seconds < 60*60*24*365 {
		t.Errorf("expected a very large age for an empty table, got %d", seconds)
	}

	ch := makeChannel("alpha", "00000000000000000000000000000001")
	if err := repo.MergeLatest(ctx, []domain.Channel{ch}, timeNow()); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	seconds, err = repo.SecondsSinceLastLoaded(ctx)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if seconds < 0 || seconds > 60 {
		t.Errorf("expected a fresh load age, got %d seconds", seconds)
	}
}

func TestLiveChannelRepository_DeleteStale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()
	now := timeNow()

	old := makeChannel("old", "00000000000000000000000000000001")
	recent := makeChannel("recent", "00000000000000000000000000000002")

	// Channel last seen 20 hours ago with one hour of uptime is past
	// the 12h + uptime horizon; one seen an hour ago is not.
	if err := repo.MergeLatest(ctx, []domain.Channel{old}, now.Add(-20*time.Hour)); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}
	if err := repo.MergeLatest(ctx, []domain.Channel{recent}, now.Add(-time.Hour)); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}
	if err := repo.MergeLatest(ctx, nil, now); err != nil {
		t.Fatalf("failed to merge empty cycle: %v", err)
	}

	deleted, err := repo.DeleteStale(ctx, now)
	if err != nil {
		t.Fatalf("failed to delete stale: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 stale channel deleted, got %d", deleted)
	}

	if _, err := repo.GetByNameAndID(ctx, old.Name, old.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected stale channel gone, got %v", err)
	}
	if _, err := repo.GetByNameAndID(ctx, recent.Name, recent.ID); err != nil {
		t.Errorf("expected recent channel kept, got %v", err)
	}
}

func TestLiveChannelRepository_GetByNameAndIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)

	_, err := repo.GetByNameAndID(context.Background(), "nope", "00000000000000000000000000000009")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLiveChannelRepository_LoadedAtRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLiveChannelRepository(db)
	ctx := context.Background()

	// Wall-clock time with sub-second precision, as the pipeline passes it.
	loadedAt := time.Now().UTC()
	ch := makeChannel("alpha", "00000000000000000000000000000001")
	if err := repo.MergeLatest(ctx, []domain.Channel{ch}, loadedAt); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	want := loadedAt.Truncate(time.Second)

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(latest))
	}
	if !latest[0].LastLoadedAt.Equal(want) {
		t.Errorf("GetLatest: expected loaded-at %v, got %v", want, latest[0].LastLoadedAt)
	}

	got, err := repo.GetByNameAndID(ctx, ch.Name, ch.ID)
	if err != nil {
		t.Fatalf("failed to get by name and id: %v", err)
	}
	if !got.LastLoadedAt.Equal(want) {
		t.Errorf("GetByNameAndID: expected loaded-at %v, got %v", want, got.LastLoadedAt)
	}

	// The retired-row scan reads the same column; it must not choke on
	// the stored representation either.
	if _, err := repo.DeleteStale(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("failed to scan for stale channels: %v", err)
	}
}
