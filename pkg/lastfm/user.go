package lastfm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// UserService provides the read-only user.* methods of the Last.fm API.
type UserService struct {
	client *Client
}

// pageAttr is the "@attr" pagination object attached to list responses.
type pageAttr struct {
	Total string `json:"total"`
	Page  string `json:"page"`
}

func (a pageAttr) total() int {
	n, err := strconv.Atoi(a.Total)
	if err != nil {
		return 0
	}
	return n
}

// GetInfo fetches a user's profile.
//
// Example:
//
//	info, err := client.User().GetInfo(ctx, "someone")
//	if err != nil {
//	    log.Printf("Failed to get user info: %v", err)
//	}
//	fmt.Println(info.Playcount.Value)
func (s *UserService) GetInfo(ctx context.Context, user string) (*UserInfo, error) {
	if user == "" {
		return nil, ErrEmptyUsername
	}

	var resp struct {
		User UserInfo `json:"user"`
	}
	if err := s.client.call(ctx, "user.getinfo", url.Values{"user": {user}}, &resp); err != nil {
		return nil, err
	}

	return &resp.User, nil
}

// GetRecentTracks fetches one page of a user's scrobbles, newest first.
//
// The first item may be the in-progress track; see Track.IsNowPlaying.
func (s *UserService) GetRecentTracks(ctx context.Context, user string, opts RecentOptions) (*Page[Track], error) {
	if user == "" {
		return nil, ErrEmptyUsername
	}

	params := url.Values{"user": {user}}
	params.Set("limit", strconv.Itoa(orDefault(opts.Limit, defaultLimit)))
	params.Set("page", strconv.Itoa(orDefault(opts.Page, defaultPage)))
	if !opts.From.IsZero() {
		params.Set("from", strconv.FormatInt(opts.From.Unix(), 10))
	}
	if !opts.To.IsZero() {
		params.Set("to", strconv.FormatInt(opts.To.Unix(), 10))
	}
	if opts.Extended {
		params.Set("extended", "1")
	}

	var resp struct {
		RecentTracks struct {
			Track List[Track] `json:"track"`
			Attr  pageAttr    `json:"@attr"`
		} `json:"recenttracks"`
	}
	if err := s.client.call(ctx, "user.getrecenttracks", params, &resp); err != nil {
		return nil, err
	}

	return &Page[Track]{
		Items: nonNil(resp.RecentTracks.Track),
		Total: resp.RecentTracks.Attr.total(),
	}, nil
}

// GetTopTracks fetches a user's most played tracks over a period.
func (s *UserService) GetTopTracks(ctx context.Context, user string, opts TopOptions) (*Page[Track], error) {
	params, err := topParams(user, opts)
	if err != nil {
		return nil, err
	}

	var resp struct {
		TopTracks struct {
			Track List[Track] `json:"track"`
			Attr  pageAttr    `json:"@attr"`
		} `json:"toptracks"`
	}
	if err := s.client.call(ctx, "user.gettoptracks", params, &resp); err != nil {
		return nil, err
	}

	return &Page[Track]{
		Items: nonNil(resp.TopTracks.Track),
		Total: resp.TopTracks.Attr.total(),
	}, nil
}

// GetTopArtists fetches a user's most played artists over a period.
func (s *UserService) GetTopArtists(ctx context.Context, user string, opts TopOptions) (*Page[Artist], error) {
	params, err := topParams(user, opts)
	if err != nil {
		return nil, err
	}

	var resp struct {
		TopArtists struct {
			Artist List[Artist] `json:"artist"`
			Attr   pageAttr     `json:"@attr"`
		} `json:"topartists"`
	}
	if err := s.client.call(ctx, "user.gettopartists", params, &resp); err != nil {
		return nil, err
	}

	return &Page[Artist]{
		Items: nonNil(resp.TopArtists.Artist),
		Total: resp.TopArtists.Attr.total(),
	}, nil
}

// GetTopAlbums fetches a user's most played albums over a period.
func (s *UserService) GetTopAlbums(ctx context.Context, user string, opts TopOptions) (*Page[Album], error) {
	params, err := topParams(user, opts)
	if err != nil {
		return nil, err
	}

	var resp struct {
		TopAlbums struct {
			Album List[Album] `json:"album"`
			Attr  pageAttr    `json:"@attr"`
		} `json:"topalbums"`
	}
	if err := s.client.call(ctx, "user.gettopalbums", params, &resp); err != nil {
		return nil, err
	}

	return &Page[Album]{
		Items: nonNil(resp.TopAlbums.Album),
		Total: resp.TopAlbums.Attr.total(),
	}, nil
}

// GetWeeklyChartList fetches the weekly reporting windows available for a
// user, oldest first.
func (s *UserService) GetWeeklyChartList(ctx context.Context, user string) ([]Chart, error) {
	if user == "" {
		return nil, ErrEmptyUsername
	}

	var resp struct {
		WeeklyChartList struct {
			Chart List[Chart] `json:"chart"`
		} `json:"weeklychartlist"`
	}
	if err := s.client.call(ctx, "user.getweeklychartlist", url.Values{"user": {user}}, &resp); err != nil {
		return nil, err
	}

	return nonNil(resp.WeeklyChartList.Chart), nil
}

// GetWeeklyTrackChart fetches the tracks a user played in the window
// [from, to]. The result is empty, never nil, when the week has no plays.
func (s *UserService) GetWeeklyTrackChart(ctx context.Context, user string, from, to time.Time) ([]Track, error) {
	if user == "" {
		return nil, ErrEmptyUsername
	}

	params := url.Values{"user": {user}}
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	var resp struct {
		WeeklyTrackChart struct {
			Track List[Track] `json:"track"`
		} `json:"weeklytrackchart"`
	}
	if err := s.client.call(ctx, "user.getweeklytrackchart", params, &resp); err != nil {
		return nil, err
	}

	return nonNil(resp.WeeklyTrackChart.Track), nil
}

func topParams(user string, opts TopOptions) (url.Values, error) {
	if user == "" {
		return nil, ErrEmptyUsername
	}

	period := opts.Period
	if period == "" {
		period = defaultPeriod
	}
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	params := url.Values{"user": {user}}
	params.Set("period", string(period))
	params.Set("limit", strconv.Itoa(orDefault(opts.Limit, defaultLimit)))
	params.Set("page", strconv.Itoa(orDefault(opts.Page, defaultPage)))
	return params, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func nonNil[T any](l List[T]) []T {
	if l == nil {
		return []T{}
	}
	return l
}
