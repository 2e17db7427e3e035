package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/refresh"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	done  chan struct{} // closed after want calls
	want  int
}

func (f *fakeRefresher) Refresh(ctx context.Context, username string) (*refresh.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, username)
	if len(f.calls) == f.want {
		close(f.done)
	}
	if err := f.fail[username]; err != nil {
		return nil, err
	}
	return outcome(refresh.ModeFull, len(f.calls), 0), nil
}

type fakeCleaner struct {
	maxAge time.Duration
	calls  int
}

func (f *fakeCleaner) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	f.calls++
	f.maxAge = maxAge
	return 3, nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Interval: time.Hour}, &fakeRefresher{}, nil, zerolog.Nop()); err == nil {
		t.Error("expected error without users")
	}
	if _, err := New(Config{Users: []string{"army"}}, &fakeRefresher{}, nil, zerolog.Nop()); err == nil {
		t.Error("expected error without interval")
	}
}

func TestDaemon_RefreshesAllUsers(t *testing.T) {
	refresher := &fakeRefresher{
		fail: map[string]error{"nobody": errors.New("lastfm: error 6: User not found")},
		done: make(chan struct{}),
		want: 3,
	}
	cleaner := &fakeCleaner{}
	statePath := filepath.Join(t.TempDir(), "state.json")

	d, err := New(Config{
		Users:     []string{"army", "nobody", "jin"},
		Interval:  time.Hour,
		StateFile: statePath,
	}, refresher, cleaner, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.run(ctx) }()

	select {
	case <-refresher.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refreshes")
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	refresher.mu.Lock()
	calls := append([]string(nil), refresher.calls...)
	refresher.mu.Unlock()
	if len(calls) != 3 || calls[0] != "army" || calls[1] != "nobody" || calls[2] != "jin" {
		t.Errorf("unexpected refresh order %v", calls)
	}

	if cleaner.calls != 1 || cleaner.maxAge != defaultRetention {
		t.Errorf("expected one cleanup with default retention, got %d calls, %s", cleaner.calls, cleaner.maxAge)
	}

	// Shutdown flushed everything to disk
	users, err := ReadState(statePath)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users in state, got %d", len(users))
	}
	if users["nobody"].ConsecutiveFailures != 1 || users["nobody"].LastError == "" {
		t.Errorf("expected recorded failure, got %+v", users["nobody"])
	}
	if users["army"].LastSuccess.IsZero() || users["jin"].LastSuccess.IsZero() {
		t.Errorf("expected recorded successes, got %+v", users)
	}
}

func TestPoller_EmitsPerUser(t *testing.T) {
	p := NewPoller([]string{"army", "jin"}, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan RefreshRequest)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, requests) }()

	// Immediate poll plus at least one tick
	var got []string
	for len(got) < 4 {
		select {
		case req := <-requests:
			got = append(got, req.Username)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	want := []string{"army", "jin", "army", "jin"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
