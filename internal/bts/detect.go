package bts

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/jfmyers9/borahae/pkg/lastfm"
)

// Classification is the BTS affiliation of a track or artist.
type Classification int

const (
	// None means no alias matched.
	None Classification = iota
	// Group means the group itself is credited.
	Group
	// Solo means a member is credited.
	Solo
)

func (c Classification) String() string {
	switch c {
	case Group:
		return "group"
	case Solo:
		return "solo"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// shortAlias is the rune length at or below which an alias is matched as a
// whole word in strict mode.
const shortAlias = 2

// featCredit captures the credited names after "feat." or "ft." in a title,
// up to a closing bracket.
var featCredit = regexp2.MustCompile(`(?i)\b(?:feat(?:uring)?|ft)\b\.?\s*(?<artists>[^\)\]]+)`, 0)

// Detector matches artist names and feature credits against the alias
// tables.
//
// The zero value is not usable; construct one with NewDetector. A Detector
// is safe for concurrent use.
type Detector struct {
	strict bool
	words  map[string]*regexp2.Regexp
}

// NewDetector builds a detector. In loose mode an alias matches anywhere
// inside a name, so "v" matches any name containing the letter v. In strict
// mode aliases of two runes or fewer must stand alone as a word.
func NewDetector(strict bool) *Detector {
	d := &Detector{strict: strict, words: make(map[string]*regexp2.Regexp)}
	if !strict {
		return d
	}

	compile := func(alias string) {
		if utf8.RuneCountInString(alias) > shortAlias {
			return
		}
		if _, ok := d.words[alias]; ok {
			return
		}
		d.words[alias] = regexp2.MustCompile(`(?<![\p{L}\p{N}])`+regexp2.Escape(alias)+`(?![\p{L}\p{N}])`, 0)
	}
	for _, alias := range groupAliases {
		compile(alias)
	}
	for _, entry := range aliasTable {
		for _, alias := range entry.aliases {
			compile(alias)
		}
	}
	return d
}

// Strict reports whether short aliases require whole-word matches.
func (d *Detector) Strict() bool {
	return d.strict
}

var defaultDetector = NewDetector(false)

// Default returns the loose detector used by the package-level functions.
func Default() *Detector {
	return defaultDetector
}

// Classify reports whether t is a group track, a member's solo track, or
// neither. The artist is checked against group then member aliases, then the
// title's feature credit is checked the same way.
func (d *Detector) Classify(t lastfm.Track) Classification {
	if c := d.ClassifyArtist(t.Artist.Name); c != None {
		return c
	}
	if credit, ok := featuredCredit(t.Name); ok {
		return d.ClassifyArtist(credit)
	}
	return None
}

// ClassifyArtist classifies a bare artist name.
func (d *Detector) ClassifyArtist(name string) Classification {
	name = normalize(name)
	if name == "" {
		return None
	}
	if d.matchAny(name, groupAliases) {
		return Group
	}
	if _, ok := d.memberFor(name); ok {
		return Solo
	}
	return None
}

// Member attributes t to a member by artist first, then feature credit.
func (d *Detector) Member(t lastfm.Track) (Member, bool) {
	if m, ok := d.memberFor(normalize(t.Artist.Name)); ok {
		return m, true
	}
	if credit, ok := featuredCredit(t.Name); ok {
		return d.memberFor(normalize(credit))
	}
	return "", false
}

func (d *Detector) memberFor(name string) (Member, bool) {
	if name == "" {
		return "", false
	}
	for _, entry := range aliasTable {
		if d.matchAny(name, entry.aliases) {
			return entry.member, true
		}
	}
	return "", false
}

func (d *Detector) matchAny(name string, aliases []string) bool {
	for _, alias := range aliases {
		if d.match(name, alias) {
			return true
		}
	}
	return false
}

func (d *Detector) match(name, alias string) bool {
	if re, ok := d.words[alias]; ok {
		matched, err := re.MatchString(name)
		return err == nil && matched
	}
	return strings.Contains(name, alias)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// featuredCredit extracts the names credited after "feat."/"ft." in title.
func featuredCredit(title string) (string, bool) {
	m, err := featCredit.FindStringMatch(title)
	if err != nil || m == nil {
		return "", false
	}
	credit := strings.TrimSpace(m.GroupByName("artists").String())
	return credit, credit != ""
}

// IsBTSTrack classifies t with the default detector.
func IsBTSTrack(t lastfm.Track) Classification {
	return defaultDetector.Classify(t)
}

// DetectMember attributes t to a member with the default detector.
func DetectMember(t lastfm.Track) (Member, bool) {
	return defaultDetector.Member(t)
}

// ClassifyArtist classifies an artist name with the default detector.
func ClassifyArtist(name string) Classification {
	return defaultDetector.ClassifyArtist(name)
}
