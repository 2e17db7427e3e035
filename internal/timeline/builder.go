// Package timeline reconstructs when a user started listening to BTS and
// how their listening evolved, from Last.fm weekly charts.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/bts"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// Source is the subset of the Last.fm user API a build needs.
// *lastfm.UserService satisfies it.
type Source interface {
	GetWeeklyChartList(ctx context.Context, user string) ([]lastfm.Chart, error)
	GetWeeklyTrackChart(ctx context.Context, user string, from, to time.Time) ([]lastfm.Track, error)
	GetTopTracks(ctx context.Context, user string, opts lastfm.TopOptions) (*lastfm.Page[lastfm.Track], error)
}

const (
	// DefaultSampleEvery is the stride between sampled weeks.
	DefaultSampleEvery = 4

	simpleTopTracks = 200
)

// Options configures a Builder.
type Options struct {
	SampleEvery int           // Weeks between samples (defaults to 4)
	Deadline    time.Duration // Bound on a whole build, zero for none
	Detector    *bts.Detector // Defaults to bts.Default()
}

// Builder builds timelines for users from a Source.
type Builder struct {
	src      Source
	opts     Options
	detector *bts.Detector
	logger   zerolog.Logger
}

// New creates a Builder.
func New(src Source, opts Options, logger zerolog.Logger) *Builder {
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = DefaultSampleEvery
	}
	detector := opts.Detector
	if detector == nil {
		detector = bts.Default()
	}

	return &Builder{
		src:      src,
		opts:     opts,
		detector: detector,
		logger:   logger.With().Str("component", "timeline").Logger(),
	}
}

// Build builds a timeline with default options and no logging.
func Build(ctx context.Context, username string, src Source) (*Timeline, error) {
	report, err := New(src, Options{}, zerolog.Nop()).Build(ctx, username)
	if err != nil {
		return nil, err
	}
	return report.Timeline, nil
}

// Build reconstructs the user's timeline from weekly charts.
//
// The first week with BTS plays is found by binary search, then every
// SampleEvery-th week from there is fetched, always including the most
// recent week. Weeks that fail to fetch are reported in Report.Skipped. An
// error is returned only when the chart list itself cannot be fetched or
// the build's deadline expires before the first week is found.
func (b *Builder) Build(ctx context.Context, username string) (*Report, error) {
	if b.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Deadline)
		defer cancel()
	}

	logger := b.logger.With().Str("user", username).Logger()

	charts, err := b.src.GetWeeklyChartList(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart list: %w", err)
	}

	report := &Report{
		Timeline:  Empty(),
		Skipped:   []lastfm.Chart{},
		FirstWeek: -1,
	}
	if len(charts) == 0 {
		logger.Debug().Msg("No weekly charts")
		return report, nil
	}

	first, probes := b.findFirstWeek(ctx, username, charts, logger)
	report.Probes = probes
	if ctx.Err() != nil {
		return nil, fmt.Errorf("failed to find first week: %w", ctx.Err())
	}
	if first == len(charts) {
		logger.Debug().Int("probes", probes).Msg("No BTS listening found")
		return report, nil
	}
	report.FirstWeek = first

	logger.Debug().
		Int("probes", probes).
		Time("week", charts[first].From).
		Msg("Found first BTS week")

	var all []lastfm.Track
	samples := sampleIndices(first, len(charts), b.opts.SampleEvery)
	for i, idx := range samples {
		chart := charts[idx]

		if ctx.Err() != nil {
			for _, rest := range samples[i:] {
				report.Skipped = append(report.Skipped, charts[rest])
			}
			logger.Warn().
				Err(ctx.Err()).
				Int("remaining", len(samples)-i).
				Msg("Build deadline reached, returning partial timeline")
			break
		}

		tracks, err := b.src.GetWeeklyTrackChart(ctx, username, chart.From, chart.To)
		if err != nil {
			logger.Warn().
				Err(err).
				Time("week", chart.From).
				Msg("Failed to fetch weekly chart, skipping week")
			report.Skipped = append(report.Skipped, chart)
			continue
		}

		entry, btsTracks := b.summarizeWeek(chart, tracks)
		report.Timeline.Evolution = append(report.Timeline.Evolution, entry)
		all = append(all, btsTracks...)
	}

	b.aggregate(report.Timeline, all)
	return report, nil
}

// findFirstWeek returns the index of the earliest chart containing BTS
// plays, or len(charts) when none does, and the number of charts fetched.
//
// Listening is assumed monotone: once a user has played BTS in some week,
// later weeks are treated as containing BTS too. A probe that fails to fetch
// narrows the search to the left without recording a candidate.
func (b *Builder) findFirstWeek(ctx context.Context, username string, charts []lastfm.Chart, logger zerolog.Logger) (int, int) {
	first := len(charts)
	probes := 0

	lo, hi := 0, len(charts)-1
	for lo <= hi {
		if ctx.Err() != nil {
			break
		}

		mid := lo + (hi-lo)/2
		probes++

		tracks, err := b.src.GetWeeklyTrackChart(ctx, username, charts[mid].From, charts[mid].To)
		if err != nil {
			logger.Debug().Err(err).Int("index", mid).Msg("Probe failed, searching earlier weeks")
			hi = mid - 1
			continue
		}

		if len(b.detector.Filter(tracks).All) > 0 {
			first = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return first, probes
}

// summarizeWeek builds the entry for one week and returns its BTS tracks.
func (b *Builder) summarizeWeek(chart lastfm.Chart, tracks []lastfm.Track) (Entry, []lastfm.Track) {
	filtered := b.detector.Filter(tracks)

	entry := Entry{Date: chart.From}
	for _, t := range filtered.All {
		entry.Plays += t.Weight()
	}
	if len(filtered.All) > 0 {
		name := filtered.All[0].Name
		entry.TopTrack = &name
	}
	if m, ok := b.detector.TopMember(filtered.Solo); ok {
		entry.TopMember = &m
	}

	return entry, filtered.All
}

func (b *Builder) aggregate(tl *Timeline, all []lastfm.Track) {
	for _, entry := range tl.Evolution {
		tl.TotalPlays += entry.Plays
		if tl.PeakPeriod == nil || entry.Plays > tl.PeakPeriod.Plays {
			tl.PeakPeriod = &Peak{Date: entry.Date, Plays: entry.Plays}
		}
	}

	if top, ok := b.detector.TopAlbum(all); ok {
		tl.FavoriteEra = &Era{Album: top.Album, Plays: top.Plays}
	}

	if len(tl.Evolution) > 0 {
		first := tl.Evolution[0].Date
		tl.FirstPlay = &first
	}
}

// sampleIndices returns first, first+every, ... up to n-1, always ending at
// n-1.
func sampleIndices(first, n, every int) []int {
	var out []int
	for i := first; i < n; i += every {
		out = append(out, i)
	}
	if len(out) == 0 || out[len(out)-1] != n-1 {
		out = append(out, n-1)
	}
	return out
}

// BuildSimple builds a reduced timeline from the user's all-time top tracks
// in a single request. It carries totals and the favorite era but no
// evolution, peak or first play.
func (b *Builder) BuildSimple(ctx context.Context, username string) (*Timeline, error) {
	if b.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Deadline)
		defer cancel()
	}

	page, err := b.src.GetTopTracks(ctx, username, lastfm.TopOptions{
		Period: lastfm.PeriodOverall,
		Limit:  simpleTopTracks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	tl := Empty()
	tl.TotalPlays = b.detector.Plays(page.Items)
	if top, ok := b.detector.TopAlbum(page.Items); ok {
		tl.FavoriteEra = &Era{Album: top.Album, Plays: top.Plays}
	}
	return tl, nil
}
