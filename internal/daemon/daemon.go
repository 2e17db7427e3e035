// Package daemon periodically refreshes the timelines and profiles of a
// fixed set of users and records how each refresh went.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/refresh"
)

const defaultRetention = 30 * 24 * time.Hour

// Config holds daemon configuration
type Config struct {
	Users     []string      // Last.fm users to refresh
	Interval  time.Duration // How often to refresh every user
	StateFile string        // Path to state persistence file
	Retention time.Duration // Age after which superseded snapshots are removed
}

// Refresher builds and stores results for one user
type Refresher interface {
	Refresh(ctx context.Context, username string) (*refresh.Outcome, error)
}

// Cleaner prunes old snapshots
type Cleaner interface {
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Daemon coordinates the poller, the refresher and state tracking
type Daemon struct {
	config    Config
	refresher Refresher
	cleaner   Cleaner
	state     *State
	poller    *Poller
	logger    zerolog.Logger
}

// New creates a new Daemon instance. cleaner may be nil.
func New(cfg Config, refresher Refresher, cleaner Cleaner, logger zerolog.Logger) (*Daemon, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("no users configured, set daemon.users")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("invalid refresh interval %s", cfg.Interval)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	logger = logger.With().Str("component", "daemon").Logger()

	// Create state
	state, err := NewState(cfg.StateFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.StateFile).Msg("Failed to restore state, starting fresh")
	}

	return &Daemon{
		config:    cfg,
		refresher: refresher,
		cleaner:   cleaner,
		state:     state,
		poller:    NewPoller(cfg.Users, cfg.Interval, logger),
		logger:    logger,
	}, nil
}

// State returns the daemon's per-user state
func (d *Daemon) State() *State {
	return d.state
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return d.Shutdown()
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Strs("users", d.config.Users).Msg("Starting daemon")

	var wg sync.WaitGroup
	requests := make(chan RefreshRequest, len(d.config.Users))

	// Start poller
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(ctx, requests); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	// Refreshes run one at a time and share the client's rate limit
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.handleRequests(ctx, requests)
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// handleRequests processes refresh requests from the poller
func (d *Daemon) handleRequests(ctx context.Context, requests <-chan RefreshRequest) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			d.refreshUser(ctx, req)
		}
	}
}

// refreshUser runs one refresh and records its outcome
func (d *Daemon) refreshUser(ctx context.Context, req RefreshRequest) {
	logger := d.logger.With().Str("user", req.Username).Logger()

	start := time.Now()
	out, err := d.refresher.Refresh(ctx, req.Username)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("Refresh interrupted by shutdown")
			return
		}
		logger.Warn().Err(err).Dur("took", time.Since(start)).Msg("Refresh failed")
		if stateErr := d.state.RecordFailure(req.Username, err); stateErr != nil {
			logger.Error().Err(stateErr).Msg("Failed to record refresh failure")
		}
		return
	}

	event := logger.Info().
		Dur("took", time.Since(start)).
		Str("mode", string(out.Timeline.Mode)).
		Int("plays", out.Timeline.Timeline.TotalPlays)
	if skipped := len(out.Timeline.Skipped); skipped > 0 {
		event = event.Int("skipped", skipped)
	}
	event.Msg("Refreshed user")

	if err := d.state.RecordSuccess(req.Username, out); err != nil {
		logger.Error().Err(err).Msg("Failed to record refresh")
	}
}

// Shutdown flushes state and prunes old snapshots
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	ctx := context.Background()

	// Cleanup old snapshots
	if d.cleaner != nil {
		deleted, err := d.cleaner.Cleanup(ctx, d.config.Retention)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to cleanup snapshots")
		} else if deleted > 0 {
			d.logger.Info().Int64("deleted", deleted).Msg("Removed old snapshots")
		}
	}

	if err := d.state.Flush(); err != nil {
		return fmt.Errorf("failed to flush state: %w", err)
	}

	return nil
}
