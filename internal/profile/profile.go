// Package profile summarizes a user's BTS listening for a dashboard.
package profile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/borahae/internal/bts"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

const (
	topTracksLimit  = 200
	topArtistsLimit = 50
	topAlbumsLimit  = 50
)

// Source is the subset of the Last.fm user API a summary needs.
type Source interface {
	GetInfo(ctx context.Context, user string) (*lastfm.UserInfo, error)
	GetTopTracks(ctx context.Context, user string, opts lastfm.TopOptions) (*lastfm.Page[lastfm.Track], error)
	GetTopArtists(ctx context.Context, user string, opts lastfm.TopOptions) (*lastfm.Page[lastfm.Artist], error)
	GetTopAlbums(ctx context.Context, user string, opts lastfm.TopOptions) (*lastfm.Page[lastfm.Album], error)
}

// Artist is a BTS-affiliated entry of the user's top artists.
type Artist struct {
	Name           string             `json:"name"`
	Plays          int                `json:"plays"`
	Classification bts.Classification `json:"classification"`
}

// Summary is a user's BTS listening profile.
type Summary struct {
	Username         string            `json:"username"`
	TotalScrobbles   int               `json:"totalScrobbles"`
	BTSPlays         int               `json:"btsPlays"`
	BTSPercentage    int               `json:"btsPercentage"`
	MemberPreference []bts.MemberPlays `json:"memberPreference"`
	FavoriteAlbum    string            `json:"favoriteAlbum"`
	Artists          []Artist          `json:"artists"`
}

// Analyzer builds summaries from a Source.
type Analyzer struct {
	src      Source
	detector *bts.Detector
	logger   zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A nil detector uses bts.Default().
func NewAnalyzer(src Source, detector *bts.Detector, logger zerolog.Logger) *Analyzer {
	if detector == nil {
		detector = bts.Default()
	}
	return &Analyzer{
		src:      src,
		detector: detector,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

// Summarize fetches the user's profile and all-time top charts and derives
// their BTS listening profile. BTS plays are counted over the top tracks, so
// the percentage is a lower bound for heavy listeners.
func (a *Analyzer) Summarize(ctx context.Context, username string) (*Summary, error) {
	info, err := a.src.GetInfo(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	overall := func(limit int) lastfm.TopOptions {
		return lastfm.TopOptions{Period: lastfm.PeriodOverall, Limit: limit}
	}

	tracks, err := a.src.GetTopTracks(ctx, username, overall(topTracksLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	artists, err := a.src.GetTopArtists(ctx, username, overall(topArtistsLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top artists: %w", err)
	}

	albums, err := a.src.GetTopAlbums(ctx, username, overall(topAlbumsLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top albums: %w", err)
	}

	s := &Summary{
		Username:         info.Name,
		TotalScrobbles:   info.Playcount.Value,
		BTSPlays:         a.detector.Plays(tracks.Items),
		MemberPreference: a.detector.MemberPreference(tracks.Items),
		FavoriteAlbum:    a.favoriteAlbum(albums.Items, tracks.Items),
		Artists:          a.affiliatedArtists(artists.Items),
	}
	if s.Username == "" {
		s.Username = username
	}
	s.BTSPercentage = bts.CalculateBTSPercentage(s.BTSPlays, s.TotalScrobbles)

	a.logger.Debug().
		Str("user", username).
		Int("bts_plays", s.BTSPlays).
		Int("artists", len(s.Artists)).
		Msg("Summarized profile")

	return s, nil
}

// favoriteAlbum prefers the most played BTS-affiliated album from the top
// albums chart and falls back to album metadata on the top tracks.
func (a *Analyzer) favoriteAlbum(albums []lastfm.Album, tracks []lastfm.Track) string {
	best := -1
	for i, album := range albums {
		if album.Name == "" || a.detector.ClassifyArtist(album.Artist.Name) == bts.None {
			continue
		}
		if best < 0 || album.Playcount.Value > albums[best].Playcount.Value {
			best = i
		}
	}
	if best >= 0 {
		return albums[best].Name
	}
	return a.detector.FavoriteAlbum(tracks)
}

func (a *Analyzer) affiliatedArtists(artists []lastfm.Artist) []Artist {
	out := []Artist{}
	for _, artist := range artists {
		c := a.detector.ClassifyArtist(artist.Name)
		if c == bts.None {
			continue
		}
		out = append(out, Artist{
			Name:           artist.Name,
			Plays:          artist.Playcount.Value,
			Classification: c,
		})
	}
	return out
}
