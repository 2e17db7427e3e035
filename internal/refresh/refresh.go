// Package refresh builds timelines and profiles for users and keeps the
// newest results in the snapshot store. The HTTP API, the daemon and the
// CLI all go through it.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/profile"
	"github.com/jfmyers9/borahae/internal/store"
	"github.com/jfmyers9/borahae/internal/timeline"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// Mode selects how a timeline is built.
type Mode string

const (
	ModeFull   Mode = "full"
	ModeSimple Mode = "simple"
)

// Kind returns the snapshot kind results of this mode are stored under.
func (m Mode) Kind() store.Kind {
	if m == ModeSimple {
		return store.KindSimple
	}
	return store.KindTimeline
}

// TimelineResult is a built timeline together with how it was built.
type TimelineResult struct {
	Username    string             `json:"username"`
	Mode        Mode               `json:"mode"`
	Timeline    *timeline.Timeline `json:"timeline"`
	Skipped     []lastfm.Chart     `json:"skipped"`
	Complete    bool               `json:"complete"`
	Probes      int                `json:"probes"`
	GeneratedAt time.Time          `json:"generatedAt"`

	// FallbackReason is set when a full build was asked for but the
	// simple timeline was returned instead.
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// Service builds results and optionally stores them.
type Service struct {
	builder  *timeline.Builder
	analyzer *profile.Analyzer
	store    *store.Store
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Service. A nil store disables Save and Cached.
func New(builder *timeline.Builder, analyzer *profile.Analyzer, st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		builder:  builder,
		analyzer: analyzer,
		store:    st,
		logger:   logger.With().Str("component", "refresh").Logger(),
		now:      time.Now,
	}
}

// Store returns the snapshot store, which may be nil.
func (s *Service) Store() *store.Store {
	return s.store
}

// Timeline builds the user's timeline in the given mode.
//
// When a full build fails for a reason other than the user not existing or
// the caller giving up, the simple timeline is built instead and the result
// records why.
func (s *Service) Timeline(ctx context.Context, username string, mode Mode) (*TimelineResult, error) {
	logger := s.logger.With().Str("user", username).Str("mode", string(mode)).Logger()

	if mode == ModeSimple {
		return s.simple(ctx, username, "")
	}

	report, err := s.builder.Build(ctx, username)
	if err == nil {
		return &TimelineResult{
			Username:    username,
			Mode:        ModeFull,
			Timeline:    report.Timeline,
			Skipped:     report.Skipped,
			Complete:    report.Complete(),
			Probes:      report.Probes,
			GeneratedAt: s.now().UTC(),
		}, nil
	}

	if !shouldFallBack(ctx, err) {
		return nil, err
	}

	logger.Warn().Err(err).Msg("Full timeline failed, falling back to simple timeline")
	return s.simple(ctx, username, err.Error())
}

func (s *Service) simple(ctx context.Context, username, reason string) (*TimelineResult, error) {
	tl, err := s.builder.BuildSimple(ctx, username)
	if err != nil {
		return nil, err
	}
	return &TimelineResult{
		Username:       username,
		Mode:           ModeSimple,
		Timeline:       tl,
		Skipped:        []lastfm.Chart{},
		Complete:       true,
		GeneratedAt:    s.now().UTC(),
		FallbackReason: reason,
	}, nil
}

// Profile builds the user's profile summary.
func (s *Service) Profile(ctx context.Context, username string) (*profile.Summary, error) {
	return s.analyzer.Summarize(ctx, username)
}

// SaveTimeline stores a timeline result under the kind of the mode it was
// actually built with.
func (s *Service) SaveTimeline(ctx context.Context, result *TimelineResult) (*store.Snapshot, error) {
	return s.save(ctx, result.Username, result.Mode.Kind(), result)
}

// SaveProfile stores a profile summary.
func (s *Service) SaveProfile(ctx context.Context, summary *profile.Summary) (*store.Snapshot, error) {
	return s.save(ctx, summary.Username, store.KindProfile, summary)
}

func (s *Service) save(ctx context.Context, username string, kind store.Kind, v any) (*store.Snapshot, error) {
	if s.store == nil {
		return nil, errors.New("no snapshot store configured")
	}
	snap, err := s.store.Save(ctx, username, kind, v)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	s.logger.Debug().
		Str("user", username).
		Str("kind", string(kind)).
		Int64("id", snap.ID).
		Msg("Saved snapshot")
	return snap, nil
}

// Cached returns the newest snapshot of kind for username if it is younger
// than maxAge. A miss returns nil without error.
func (s *Service) Cached(ctx context.Context, username string, kind store.Kind, maxAge time.Duration) (*store.Snapshot, error) {
	if s.store == nil || maxAge <= 0 {
		return nil, nil
	}
	snap, err := s.store.Latest(ctx, username, kind)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if snap.Age(s.now()) >= maxAge {
		return nil, nil
	}
	return snap, nil
}

// Outcome is what a full refresh of one user produced.
type Outcome struct {
	Timeline *TimelineResult
	Profile  *profile.Summary
}

// Refresh builds and saves both the timeline and the profile of a user. A
// profile failure does not discard a saved timeline; the first error is
// returned alongside whatever succeeded.
func (s *Service) Refresh(ctx context.Context, username string) (*Outcome, error) {
	out := &Outcome{}

	result, err := s.Timeline(ctx, username, ModeFull)
	if err != nil {
		return out, fmt.Errorf("failed to build timeline: %w", err)
	}
	if _, err := s.SaveTimeline(ctx, result); err != nil {
		return out, err
	}
	out.Timeline = result

	summary, err := s.Profile(ctx, username)
	if err != nil {
		return out, fmt.Errorf("failed to build profile: %w", err)
	}
	if _, err := s.SaveProfile(ctx, summary); err != nil {
		return out, err
	}
	out.Profile = summary

	return out, nil
}

// shouldFallBack reports whether a failed full build is worth retrying as
// a simple one.
func shouldFallBack(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsNotFound(err) || errors.Is(err, lastfm.ErrEmptyUsername) {
		return false
	}
	return true
}

// IsNotFound reports whether err means the Last.fm user does not exist.
func IsNotFound(err error) bool {
	var apiErr *lastfm.Error
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
