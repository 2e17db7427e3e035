package bts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jfmyers9/borahae/internal/bts"
	"github.com/jfmyers9/borahae/pkg/lastfm"
)

func track(name, artist string) lastfm.Track {
	return lastfm.Track{Name: name, Artist: lastfm.Ref{Name: artist}}
}

func TestIsBTSTrack_CaseAndWhitespace(t *testing.T) {
	assert.Equal(t, bts.Group, bts.IsBTSTrack(track("Butter", "  BTS  ")))
	assert.Equal(t, bts.Group, bts.IsBTSTrack(track("Butter", "bts")))
	assert.Equal(t, bts.Group, bts.IsBTSTrack(track("봄날", "방탄소년단")))
	assert.Equal(t, bts.Group, bts.IsBTSTrack(track("No More Dream", "Bangtan Boys")))
}

func TestIsBTSTrack_Solo(t *testing.T) {
	for _, artist := range []string{"RM", "Jin", "SUGA", "Agust D", "j-hope", "Jimin", "V", "Jung Kook", "정국"} {
		assert.Equal(t, bts.Solo, bts.IsBTSTrack(track("song", artist)), artist)
	}
}

func TestIsBTSTrack_FeatureCredit(t *testing.T) {
	assert.Equal(t, bts.Solo, bts.IsBTSTrack(track("Left and Right (feat. Jung Kook)", "Charlie Puth")))
	assert.Equal(t, bts.Solo, bts.IsBTSTrack(track("Rush Hour (ft. j-hope)", "Crush")))
	assert.Equal(t, bts.Group, bts.IsBTSTrack(track("My Universe [feat. BTS]", "Coldplay")))
	assert.Equal(t, bts.None, bts.IsBTSTrack(track("Paradise (feat. Brandy)", "Coldplay")))
}

func TestIsBTSTrack_Unrelated(t *testing.T) {
	assert.Equal(t, bts.None, bts.IsBTSTrack(track("Song", "Unrelated Artist")))
	assert.Equal(t, bts.None, bts.IsBTSTrack(track("Song", "")))
}

func TestDetectMember_Exclusive(t *testing.T) {
	m, ok := bts.DetectMember(track("Wild Flower", "RM"))
	assert.True(t, ok)
	assert.Equal(t, bts.RM, m)

	tests := map[string]bts.Member{
		"Kim Seokjin":  bts.Jin,
		"Agust D":      bts.Suga,
		"jhope":        bts.JHope,
		"Park Jimin":   bts.Jimin,
		"Kim Taehyung": bts.V,
		"JUNGKOOK":     bts.JungKook,
	}
	for artist, want := range tests {
		m, ok := bts.DetectMember(track("song", artist))
		assert.True(t, ok, artist)
		assert.Equal(t, want, m, artist)
	}
}

func TestDetectMember_FeatureCredit(t *testing.T) {
	m, ok := bts.DetectMember(track("Stay Alive (Prod. SUGA of BTS) feat. Jung Kook", "Seoul Session"))
	assert.True(t, ok)
	assert.Equal(t, bts.JungKook, m)

	_, ok = bts.DetectMember(track("Butter", "BTS"))
	assert.False(t, ok)
}

func TestDetector_Strict(t *testing.T) {
	loose := bts.NewDetector(false)
	strict := bts.NewDetector(true)

	assert.False(t, loose.Strict())
	assert.True(t, strict.Strict())

	// Loose substring matching finds "v" inside unrelated names.
	assert.Equal(t, bts.Solo, loose.ClassifyArtist("Avicii"))
	assert.Equal(t, bts.None, strict.ClassifyArtist("Avicii"))

	// Standalone short aliases still match in strict mode.
	assert.Equal(t, bts.Solo, strict.ClassifyArtist("V"))
	assert.Equal(t, bts.Solo, strict.ClassifyArtist("RM"))
	assert.Equal(t, bts.Solo, strict.ClassifyArtist("Jin"))

	m, ok := strict.Member(track("Stigma", "V"))
	assert.True(t, ok)
	assert.Equal(t, bts.V, m)

	// Longer aliases keep substring semantics.
	assert.Equal(t, bts.Group, strict.ClassifyArtist("BTS (방탄소년단)"))
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "group", bts.Group.String())
	assert.Equal(t, "solo", bts.Solo.String())
	assert.Equal(t, "none", bts.None.String())

	text, err := bts.Solo.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "solo", string(text))
}

func TestMembers(t *testing.T) {
	assert.Equal(t, []bts.Member{bts.RM, bts.Jin, bts.Suga, bts.JHope, bts.Jimin, bts.V, bts.JungKook}, bts.Members())
	assert.Contains(t, bts.Suga.Aliases(), "agust d")
	assert.Nil(t, bts.Member("Nobody").Aliases())
	assert.Len(t, bts.GroupAliases(), 7)
}
