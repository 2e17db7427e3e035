package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type payload struct {
	TotalPlays int    `json:"totalPlays"`
	Album      string `json:"album"`
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// createTestStore creates an in-memory SQLite store for testing
func createTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	clock := &fakeClock{now: time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)}
	s.now = clock.Now

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, clock
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		s, err := Open(":memory:")
		if err != nil {
			t.Fatalf("failed to create in-memory store: %v", err)
		}
		defer func() { _ = s.Close() }()

		if s.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snapshots.db")

		s, err := Open(path)
		if err != nil {
			t.Fatalf("failed to create file-based store: %v", err)
		}
		if _, err := s.Save(context.Background(), "army", KindTimeline, payload{TotalPlays: 1}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		_ = s.Close()

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("database file missing: %v", err)
		}

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer func() { _ = reopened.Close() }()

		count, err := reopened.Count(context.Background())
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 snapshot after reopen, got %d", count)
		}
	})
}

func TestSaveAndLatest(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "army", KindTimeline, payload{TotalPlays: 10, Album: "BE"}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	clock.Advance(time.Hour)
	saved, err := s.Save(ctx, "army", KindTimeline, payload{TotalPlays: 20, Album: "Proof"})
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	latest, err := s.Latest(ctx, "ARMY", KindTimeline)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}

	if latest.ID != saved.ID {
		t.Errorf("expected latest id %d, got %d", saved.ID, latest.ID)
	}
	if !latest.CreatedAt.Equal(clock.Now()) {
		t.Errorf("expected created at %v, got %v", clock.Now(), latest.CreatedAt)
	}

	var got payload
	if err := latest.Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.TotalPlays != 20 || got.Album != "Proof" {
		t.Errorf("unexpected payload %+v", got)
	}

	if age := latest.Age(clock.Now().Add(time.Minute)); age != time.Minute {
		t.Errorf("expected age 1m, got %s", age)
	}
}

func TestLatest_NotFound(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "army", KindProfile, payload{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	_, err := s.Latest(ctx, "army", KindTimeline)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = s.Latest(ctx, "someone-else", KindProfile)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_InvalidKind(t *testing.T) {
	s, _ := createTestStore(t)

	if _, err := s.Save(context.Background(), "army", Kind("photocards"), payload{}); err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestHistory(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := s.Save(ctx, "army", KindSimple, payload{TotalPlays: i}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		clock.Advance(time.Hour)
	}
	if _, err := s.Save(ctx, "army", KindProfile, payload{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	history, err := s.History(ctx, "army", KindSimple, 3)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(history))
	}

	for i, want := range []int{5, 4, 3} {
		var got payload
		if err := history[i].Decode(&got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got.TotalPlays != want {
			t.Errorf("history[%d]: expected %d plays, got %d", i, want, got.TotalPlays)
		}
	}

	all, err := s.History(ctx, "army", KindSimple, 0)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected 5 snapshots, got %d", len(all))
	}

	none, err := s.History(ctx, "nobody", KindSimple, 10)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty history, got %v", none)
	}
}

func TestCleanup(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	// Three old timelines and one old profile for army, one old timeline
	// for jin.
	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, "army", KindTimeline, payload{TotalPlays: i}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		clock.Advance(time.Minute)
	}
	if _, err := s.Save(ctx, "army", KindProfile, payload{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if _, err := s.Save(ctx, "jin", KindTimeline, payload{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	clock.Advance(48 * time.Hour)
	if _, err := s.Save(ctx, "army", KindProfile, payload{}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	deleted, err := s.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to cleanup: %v", err)
	}

	// Two superseded army timelines and the superseded army profile go.
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 remaining, got %d", count)
	}

	latest, err := s.Latest(ctx, "army", KindTimeline)
	if err != nil {
		t.Fatalf("expected newest timeline to survive cleanup: %v", err)
	}
	var got payload
	if err := latest.Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.TotalPlays != 2 {
		t.Errorf("expected newest timeline kept, got %+v", got)
	}

	if _, err := s.Latest(ctx, "jin", KindTimeline); err != nil {
		t.Errorf("expected jin's only timeline to survive cleanup: %v", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Save(ctx, "army", KindTimeline, payload{TotalPlays: i}); err != nil {
				t.Errorf("failed to save: %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 20 {
		t.Errorf("expected 20 snapshots, got %d", count)
	}
}
