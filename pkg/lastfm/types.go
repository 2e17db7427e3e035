package lastfm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Ref is the canonical shape of an artist or album reference.
//
// Last.fm is inconsistent across endpoints: recent tracks send
// {"#text": "BTS"}, top tracks send {"name": "BTS"}, and some payloads use a
// bare string. Ref accepts all three so nothing past this package ever
// narrows on the variant.
type Ref struct {
	Name string `json:"name"`
	MBID string `json:"mbid,omitempty"`
	URL  string `json:"url,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. Unknown shapes decode to the
// zero Ref rather than failing the whole response.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref{Name: s}
		return nil
	}

	if b[0] != '{' {
		*r = Ref{}
		return nil
	}

	var obj struct {
		Name string `json:"name"`
		Text string `json:"#text"`
		MBID string `json:"mbid"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		*r = Ref{}
		return nil
	}

	name := obj.Name
	if name == "" {
		name = obj.Text
	}
	*r = Ref{Name: name, MBID: obj.MBID, URL: obj.URL}
	return nil
}

// Count is a play count as Last.fm sends it: usually a numeric string,
// sometimes a number, sometimes absent. Unparseable values decode as unset.
type Count struct {
	Value int
	Set   bool // false when the field was absent or empty
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Count{}
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	if raw == "" {
		*c = Count{}
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		*c = Count{}
		return nil
	}
	*c = Count{Value: n, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

// Timestamp wraps time.Time and decodes Last.fm's date objects, which carry
// a unix timestamp string under "uts" (tracks) or "unixtime" (user.getinfo).
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*t = Timestamp{}
		return nil
	}

	var raw struct {
		UTS      string          `json:"uts"`
		Unixtime json.RawMessage `json:"unixtime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	secs := raw.UTS
	if secs == "" && len(raw.Unixtime) > 0 {
		secs = string(bytes.Trim(raw.Unixtime, `"`))
	}
	if secs == "" {
		*t = Timestamp{}
		return nil
	}

	ts, err := parseUnix(secs)
	if err != nil {
		*t = Timestamp{}
		return nil
	}
	t.Time = ts
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]string{"uts": strconv.FormatInt(t.Unix(), 10)})
}

// List decodes a JSON array, or a single object that Last.fm sends in place
// of a one-element array, or an empty string/absent value.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || b[0] == '"' {
		*l = List[T]{}
		return nil
	}

	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}
		*l = items
		return nil
	}

	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// TrackAttr holds the "@attr" object attached to individual tracks.
type TrackAttr struct {
	NowPlaying string `json:"nowplaying,omitempty"`
	Rank       string `json:"rank,omitempty"`
}

// Track is a scrobbled or charted track, normalized from any user.* method.
type Track struct {
	Name      string    `json:"name"`
	Artist    Ref       `json:"artist"`
	Album     Ref       `json:"album"`
	Playcount Count     `json:"playcount"`
	Date      Timestamp `json:"date"`
	URL       string    `json:"url,omitempty"`
	MBID      string    `json:"mbid,omitempty"`
	Attr      TrackAttr `json:"@attr"`
}

// Weight returns the number of plays this record stands for: its playcount
// when Last.fm sent one, otherwise 1. Recent-track records have no
// playcount and each represent a single play.
func (t Track) Weight() int {
	if t.Playcount.Set {
		return t.Playcount.Value
	}
	return 1
}

// IsNowPlaying reports whether the record is the in-progress track that
// user.getrecenttracks prepends.
func (t Track) IsNowPlaying() bool {
	return t.Attr.NowPlaying == "true"
}

// Artist is an entry of user.gettopartists.
type Artist struct {
	Name      string    `json:"name"`
	Playcount Count     `json:"playcount"`
	MBID      string    `json:"mbid,omitempty"`
	URL       string    `json:"url,omitempty"`
	Attr      TrackAttr `json:"@attr"`
}

// Album is an entry of user.gettopalbums.
type Album struct {
	Name      string    `json:"name"`
	Artist    Ref       `json:"artist"`
	Playcount Count     `json:"playcount"`
	MBID      string    `json:"mbid,omitempty"`
	URL       string    `json:"url,omitempty"`
	Attr      TrackAttr `json:"@attr"`
}

// Chart is one weekly reporting window from user.getweeklychartlist.
type Chart struct {
	From time.Time
	To   time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Chart) UnmarshalJSON(b []byte) error {
	var raw struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	from, err := parseUnix(raw.From)
	if err != nil {
		return fmt.Errorf("invalid chart start: %w", err)
	}
	to, err := parseUnix(raw.To)
	if err != nil {
		return fmt.Errorf("invalid chart end: %w", err)
	}

	*c = Chart{From: from, To: to}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Chart) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"from": strconv.FormatInt(c.From.Unix(), 10),
		"to":   strconv.FormatInt(c.To.Unix(), 10),
	})
}

// UserInfo is the profile returned by user.getinfo.
type UserInfo struct {
	Name       string    `json:"name"`
	RealName   string    `json:"realname,omitempty"`
	Country    string    `json:"country,omitempty"`
	URL        string    `json:"url,omitempty"`
	Playcount  Count     `json:"playcount"`
	Registered Timestamp `json:"registered"`
}

// Page is one page of a paginated user chart.
type Page[T any] struct {
	Items []T // Items on this page
	Total int // Total items across all pages, as reported by Last.fm
}

// Period selects the time range of a top chart.
type Period string

const (
	PeriodOverall Period = "overall"
	Period7Day    Period = "7day"
	Period1Month  Period = "1month"
	Period3Month  Period = "3month"
	Period6Month  Period = "6month"
	Period12Month Period = "12month"
)

const (
	defaultPeriod = PeriodOverall
	defaultLimit  = 50
	defaultPage   = 1
)

// Valid reports whether p is a period Last.fm accepts.
func (p Period) Valid() bool {
	switch p {
	case PeriodOverall, Period7Day, Period1Month, Period3Month, Period6Month, Period12Month:
		return true
	}
	return false
}

// RecentOptions configures user.getrecenttracks.
type RecentOptions struct {
	Limit    int       // Defaults to 50
	Page     int       // Defaults to 1
	From     time.Time // Optional lower bound
	To       time.Time // Optional upper bound
	Extended bool      // Request extended artist data
}

// TopOptions configures the user.gettop* methods.
type TopOptions struct {
	Period Period // Defaults to overall
	Limit  int    // Defaults to 50
	Page   int    // Defaults to 1
}

func parseUnix(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
