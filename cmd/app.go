package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/bts"
	"github.com/jfmyers9/borahae/internal/config"
	"github.com/jfmyers9/borahae/internal/profile"
	"github.com/jfmyers9/borahae/internal/refresh"
	"github.com/jfmyers9/borahae/internal/store"
	"github.com/jfmyers9/borahae/internal/timeline"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// app holds everything a command needs, wired from configuration
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	client   *lastfm.Client
	detector *bts.Detector
	store    *store.Store // nil unless requested
	service  *refresh.Service
}

// newApp loads configuration and wires the Last.fm client, builders and,
// when withStore is set, the snapshot store
func newApp(withStore bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags override config
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	file := cfg.Log.File
	if logFile != "" {
		file = logFile
	}
	logger := setupLogger(file, level)

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:         cfg.LastFM.APIKey,
		BaseURL:        cfg.LastFM.BaseURL,
		Logger:         newLastFMLogger(logger),
		RequestTimeout: cfg.LastFM.RequestTimeout,
		RateLimit:      cfg.LastFM.RateLimit,
		Burst:          cfg.LastFM.Burst,
		MaxRetries:     cfg.LastFM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	detector := bts.NewDetector(cfg.Timeline.StrictAliases)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		detector: detector,
	}

	if withStore {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.Open(cfg.StorePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		a.store = st
		logger.Debug().Str("path", cfg.StorePath()).Msg("Opened snapshot store")
	}

	builder := timeline.New(client.User(), timeline.Options{
		SampleEvery: cfg.Timeline.SampleWeeks,
		Deadline:    cfg.Timeline.Deadline,
		Detector:    detector,
	}, logger)
	analyzer := profile.NewAnalyzer(client.User(), detector, logger)
	a.service = refresh.New(builder, analyzer, a.store, logger)

	return a, nil
}

// Close releases the snapshot store if one was opened
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close snapshot store")
		}
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
