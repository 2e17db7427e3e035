package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/borahae/internal/daemon"
	"github.com/jfmyers9/borahae/internal/profile"
	"github.com/jfmyers9/borahae/internal/refresh"
	"github.com/jfmyers9/borahae/internal/store"
)

const (
	dateLayout  = "2006-01-02"
	maxColWidth = 40
	none        = "-"
)

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, so Hangul and other wide characters
// count as two.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		// A wide rune may not fit exactly, so pad whatever is left
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
		return runewidth.FillRight(truncated, width)
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text // exactly the right width
}

// table renders rows in aligned columns
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], min(runewidth.StringWidth(cell), maxColWidth))
		}
	}

	line := func(cells []string) {
		out := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				out[i] = cell // last column is neither padded nor truncated
				continue
			}
			out[i] = padToWidth(cell, widths[i])
		}
		fmt.Fprintln(w, strings.Join(out, "  "))
	}

	line(t.headers)
	for _, row := range t.rows {
		line(row)
	}
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTimeline(w io.Writer, r *refresh.TimelineResult) {
	tl := r.Timeline

	fmt.Fprintf(w, "User:          %s (%s)\n", r.Username, r.Mode)
	if r.FallbackReason != "" {
		fmt.Fprintf(w, "Fallback:      %s\n", r.FallbackReason)
	}
	if tl.FirstPlay != nil {
		fmt.Fprintf(w, "First play:    %s\n", tl.FirstPlay.Format(dateLayout))
	} else if r.Mode == refresh.ModeFull {
		fmt.Fprintln(w, "First play:    no BTS listening found")
	}
	fmt.Fprintf(w, "Total plays:   %d\n", tl.TotalPlays)
	if tl.PeakPeriod != nil {
		fmt.Fprintf(w, "Peak week:     %s (%d plays)\n", tl.PeakPeriod.Date.Format(dateLayout), tl.PeakPeriod.Plays)
	}
	if tl.FavoriteEra != nil {
		fmt.Fprintf(w, "Favorite era:  %s (%d plays)\n", tl.FavoriteEra.Album, tl.FavoriteEra.Plays)
	}

	if len(tl.Evolution) > 0 {
		fmt.Fprintln(w)
		t := &table{headers: []string{"WEEK", "PLAYS", "TOP TRACK", "TOP MEMBER"}}
		for _, e := range tl.Evolution {
			track, member := none, none
			if e.TopTrack != nil {
				track = *e.TopTrack
			}
			if e.TopMember != nil {
				member = string(*e.TopMember)
			}
			t.add(e.Date.Format(dateLayout), strconv.Itoa(e.Plays), track, member)
		}
		t.render(w)
	}

	if len(r.Skipped) > 0 {
		weeks := make([]string, len(r.Skipped))
		for i, c := range r.Skipped {
			weeks[i] = c.From.Format(dateLayout)
		}
		fmt.Fprintf(w, "\nSkipped %d week(s): %s\n", len(r.Skipped), strings.Join(weeks, ", "))
	}
}

func printProfile(w io.Writer, s *profile.Summary) {
	fmt.Fprintf(w, "User:            %s\n", s.Username)
	fmt.Fprintf(w, "Scrobbles:       %d\n", s.TotalScrobbles)
	fmt.Fprintf(w, "BTS plays:       %d (%d%%)\n", s.BTSPlays, s.BTSPercentage)
	fmt.Fprintf(w, "Favorite album:  %s\n", s.FavoriteAlbum)

	if len(s.Artists) > 0 {
		fmt.Fprintln(w)
		t := &table{headers: []string{"ARTIST", "PLAYS", "TYPE"}}
		for _, a := range s.Artists {
			t.add(a.Name, strconv.Itoa(a.Plays), a.Classification.String())
		}
		t.render(w)
	}

	fmt.Fprintln(w)
	printMembers(w, s)
}

func printMembers(w io.Writer, s *profile.Summary) {
	total := 0
	for _, mp := range s.MemberPreference {
		total += mp.Plays
	}

	t := &table{headers: []string{"MEMBER", "PLAYS", "SHARE"}}
	for _, mp := range s.MemberPreference {
		share := none
		if total > 0 {
			share = fmt.Sprintf("%d%%", mp.Plays*100/total)
		}
		t.add(string(mp.Member), strconv.Itoa(mp.Plays), share)
	}
	t.render(w)
}

func printHistory(w io.Writer, snapshots []store.Snapshot, now time.Time) {
	if len(snapshots) == 0 {
		fmt.Fprintln(w, "No snapshots")
		return
	}

	t := &table{headers: []string{"ID", "TAKEN", "AGE", "SUMMARY"}}
	for _, snap := range snapshots {
		t.add(
			strconv.FormatInt(snap.ID, 10),
			snap.CreatedAt.Local().Format("2006-01-02 15:04"),
			snap.Age(now).Round(time.Minute).String(),
			summarizeSnapshot(&snap),
		)
	}
	t.render(w)
}

func summarizeSnapshot(snap *store.Snapshot) string {
	switch snap.Kind {
	case store.KindProfile:
		var s profile.Summary
		if err := snap.Decode(&s); err != nil {
			return "unreadable"
		}
		return fmt.Sprintf("%d BTS plays (%d%%), %s", s.BTSPlays, s.BTSPercentage, s.FavoriteAlbum)
	default:
		var r refresh.TimelineResult
		if err := snap.Decode(&r); err != nil || r.Timeline == nil {
			return "unreadable"
		}
		summary := fmt.Sprintf("%d plays", r.Timeline.TotalPlays)
		if r.Timeline.FavoriteEra != nil {
			summary += ", " + r.Timeline.FavoriteEra.Album
		}
		if n := len(r.Skipped); n > 0 {
			summary += fmt.Sprintf(", %d skipped", n)
		}
		return summary
	}
}

func printStatus(w io.Writer, users map[string]daemon.UserState, now time.Time) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No refreshes recorded")
		return
	}

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &table{headers: []string{"USER", "LAST SUCCESS", "MODE", "PLAYS", "SKIPPED", "LAST ERROR"}}
	for _, name := range names {
		us := users[name]
		success := "never"
		if !us.LastSuccess.IsZero() {
			success = now.Sub(us.LastSuccess).Round(time.Minute).String() + " ago"
		}
		lastErr := none
		if us.LastError != "" {
			lastErr = fmt.Sprintf("%s (x%d)", us.LastError, us.ConsecutiveFailures)
		}
		mode := none
		if us.Mode != "" {
			mode = string(us.Mode)
		}
		t.add(name, success, mode, strconv.Itoa(us.TotalPlays), strconv.Itoa(us.SkippedWeeks), lastErr)
	}
	t.render(w)
}
