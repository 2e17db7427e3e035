package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshRequest asks the daemon to refresh one user
type RefreshRequest struct {
	Username string
	Tick     time.Time // When the poller fired
}

// Poller emits a refresh request per configured user at regular intervals
type Poller struct {
	users    []string
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(users []string, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		users:    users,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends requests to the provided channel
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, requests chan<- RefreshRequest) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Int("users", len(p.users)).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx, time.Now(), requests)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case tick := <-ticker.C:
			p.poll(ctx, tick, requests)
		}
	}
}

// poll sends one request per user, giving up when ctx is cancelled
func (p *Poller) poll(ctx context.Context, tick time.Time, requests chan<- RefreshRequest) {
	for _, user := range p.users {
		select {
		case requests <- RefreshRequest{Username: user, Tick: tick}:
			p.logger.Debug().Str("user", user).Msg("Queued refresh")
		case <-ctx.Done():
			return
		}
	}
}
