package bts

import (
	"math"
	"sort"

	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// UnknownAlbum is reported when no BTS track carries album metadata.
const UnknownAlbum = "Unknown"

// Filtered partitions a batch of tracks by classification. Unaffiliated
// tracks appear in no bucket.
type Filtered struct {
	Group []lastfm.Track
	Solo  []lastfm.Track
	All   []lastfm.Track
}

// MemberPlays is the weighted play count attributed to one member.
type MemberPlays struct {
	Member Member `json:"member"`
	Plays  int    `json:"plays"`
}

// AlbumPlays is the weighted play count of one album.
type AlbumPlays struct {
	Album string `json:"album"`
	Plays int    `json:"plays"`
}

// Filter partitions ts by classification, preserving input order.
func (d *Detector) Filter(ts []lastfm.Track) Filtered {
	f := Filtered{
		Group: []lastfm.Track{},
		Solo:  []lastfm.Track{},
		All:   []lastfm.Track{},
	}
	for _, t := range ts {
		switch d.Classify(t) {
		case Group:
			f.Group = append(f.Group, t)
		case Solo:
			f.Solo = append(f.Solo, t)
		default:
			continue
		}
		f.All = append(f.All, t)
	}
	return f
}

// MemberPreference sums weighted plays of solo tracks per member. The result
// always has one entry per member, sorted by plays descending with ties in
// declaration order.
func (d *Detector) MemberPreference(ts []lastfm.Track) []MemberPlays {
	prefs := make([]MemberPlays, len(aliasTable))
	index := make(map[Member]int, len(aliasTable))
	for i, entry := range aliasTable {
		prefs[i] = MemberPlays{Member: entry.member}
		index[entry.member] = i
	}

	for _, t := range ts {
		if d.Classify(t) != Solo {
			continue
		}
		m, ok := d.Member(t)
		if !ok {
			continue
		}
		prefs[index[m]].Plays += t.Weight()
	}

	sort.SliceStable(prefs, func(i, j int) bool {
		return prefs[i].Plays > prefs[j].Plays
	})
	return prefs
}

// TopMember returns the member with the most weighted solo plays in ts.
// Reports false when no solo track is attributed.
func (d *Detector) TopMember(ts []lastfm.Track) (Member, bool) {
	prefs := d.MemberPreference(ts)
	if prefs[0].Plays == 0 {
		return "", false
	}
	return prefs[0].Member, true
}

// TopAlbum returns the album with the most weighted plays among the BTS
// tracks of ts that carry album metadata. The first album encountered wins a
// tie. Reports false when no such track exists.
func (d *Detector) TopAlbum(ts []lastfm.Track) (AlbumPlays, bool) {
	counts := make(map[string]int)
	var order []string

	for _, t := range ts {
		album := t.Album.Name
		if album == "" || d.Classify(t) == None {
			continue
		}
		if _, seen := counts[album]; !seen {
			order = append(order, album)
		}
		counts[album] += t.Weight()
	}

	if len(order) == 0 {
		return AlbumPlays{}, false
	}

	best := AlbumPlays{Album: order[0], Plays: counts[order[0]]}
	for _, album := range order[1:] {
		if counts[album] > best.Plays {
			best = AlbumPlays{Album: album, Plays: counts[album]}
		}
	}
	return best, true
}

// FavoriteAlbum returns the name of TopAlbum, or UnknownAlbum.
func (d *Detector) FavoriteAlbum(ts []lastfm.Track) string {
	if top, ok := d.TopAlbum(ts); ok {
		return top.Album
	}
	return UnknownAlbum
}

// Plays sums the weighted plays of the BTS tracks in ts.
func (d *Detector) Plays(ts []lastfm.Track) int {
	total := 0
	for _, t := range ts {
		if d.Classify(t) != None {
			total += t.Weight()
		}
	}
	return total
}

// CalculateBTSPercentage returns bts as a rounded percentage of total,
// clamped to [0, 100]. A non-positive total yields 0.
func CalculateBTSPercentage(bts, total int) int {
	if total <= 0 || bts <= 0 {
		return 0
	}
	pct := int(math.Round(float64(bts) / float64(total) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// FilterBTSTracks partitions ts with the default detector.
func FilterBTSTracks(ts []lastfm.Track) Filtered {
	return defaultDetector.Filter(ts)
}

// CalculateMemberPreference computes member preference with the default
// detector.
func CalculateMemberPreference(ts []lastfm.Track) []MemberPlays {
	return defaultDetector.MemberPreference(ts)
}

// FavoriteAlbum returns the favorite BTS album with the default detector.
func FavoriteAlbum(ts []lastfm.Track) string {
	return defaultDetector.FavoriteAlbum(ts)
}

// TopAlbum returns the top BTS album with the default detector.
func TopAlbum(ts []lastfm.Track) (AlbumPlays, bool) {
	return defaultDetector.TopAlbum(ts)
}

// CalculateBTSPlays sums BTS plays with the default detector.
func CalculateBTSPlays(ts []lastfm.Track) int {
	return defaultDetector.Plays(ts)
}
