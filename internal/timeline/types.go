package timeline

import (
	"time"

	"github.com/jfmyers9/borahae/internal/bts"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// Entry summarizes one sampled week.
type Entry struct {
	Date      time.Time   `json:"date"`
	Plays     int         `json:"plays"`
	TopTrack  *string     `json:"topTrack"`
	TopMember *bts.Member `json:"topMember"`
}

// Peak is the sampled week with the most BTS plays.
type Peak struct {
	Date  time.Time `json:"date"`
	Plays int       `json:"plays"`
}

// Era is the album with the most BTS plays.
type Era struct {
	Album string `json:"album"`
	Plays int    `json:"plays"`
}

// Timeline is a user's reconstructed BTS listening history.
//
// A nil FirstPlay means no BTS listening was found, and Evolution is then
// empty.
type Timeline struct {
	FirstPlay   *time.Time `json:"firstPlay"`
	Evolution   []Entry    `json:"evolution"`
	TotalPlays  int        `json:"totalPlays"`
	PeakPeriod  *Peak      `json:"peakPeriod"`
	FavoriteEra *Era       `json:"favoriteEra"`
}

// Empty returns the timeline of a user with no BTS listening.
func Empty() *Timeline {
	return &Timeline{Evolution: []Entry{}}
}

// Report is the result of a full build: the timeline plus what the build
// could not cover.
type Report struct {
	Timeline *Timeline `json:"timeline"`

	// Skipped lists sampled weeks whose chart could not be fetched. They
	// are absent from Timeline.Evolution.
	Skipped []lastfm.Chart `json:"skipped"`

	// Probes is the number of chart fetches spent finding the first week.
	Probes int `json:"probes"`

	// FirstWeek is the index of the first BTS week in the chart list, or
	// -1 when there is none.
	FirstWeek int `json:"firstWeek"`
}

// Complete reports whether every sampled week contributed to the timeline.
func (r *Report) Complete() bool {
	return len(r.Skipped) == 0
}
