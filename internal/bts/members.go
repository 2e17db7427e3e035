// Package bts classifies scrobbles by their BTS affiliation and attributes
// solo work to the seven members.
//
// Matching is alias based: an artist name, or the credit after "feat."/"ft."
// in a title, is compared case-insensitively against the group aliases and
// each member's alias table. Tables are checked in declaration order and the
// first match wins.
package bts

// Member is one of the seven canonical member names.
type Member string

// Members in declaration order. Alias matching, preference ties and the
// weekly top-member vote all resolve in this order.
const (
	RM       Member = "RM"
	Jin      Member = "Jin"
	Suga     Member = "SUGA"
	JHope    Member = "j-hope"
	Jimin    Member = "Jimin"
	V        Member = "V"
	JungKook Member = "Jung Kook"
)

type memberAliases struct {
	member  Member
	aliases []string
}

// groupAliases identify the group itself. All entries are lower case.
var groupAliases = []string{
	"bts",
	"방탄소년단",
	"bangtan boys",
	"bangtan sonyeondan",
	"bangtan",
	"防弾少年団",
	"bulletproof boy scouts",
}

// aliasTable maps each member to the names their solo work is credited
// under: stage names, real names and Hangul. All entries are lower case.
var aliasTable = []memberAliases{
	{RM, []string{"rm", "rap monster", "namjoon", "kim namjoon", "김남준", "남준"}},
	{Jin, []string{"jin", "seokjin", "kim seokjin", "김석진", "석진", "진"}},
	{Suga, []string{"suga", "agust d", "yoongi", "min yoongi", "민윤기", "윤기", "슈가"}},
	{JHope, []string{"j-hope", "jhope", "j hope", "hoseok", "jung hoseok", "정호석", "제이홉"}},
	{Jimin, []string{"jimin", "park jimin", "박지민", "지민"}},
	{V, []string{"v", "taehyung", "kim taehyung", "김태형", "태형", "뷔"}},
	{JungKook, []string{"jung kook", "jungkook", "jk", "jeon jungkook", "전정국", "정국"}},
}

// Members returns the seven members in declaration order.
func Members() []Member {
	out := make([]Member, len(aliasTable))
	for i, entry := range aliasTable {
		out[i] = entry.member
	}
	return out
}

// Aliases returns the names m is credited under, or nil for an unknown
// member.
func (m Member) Aliases() []string {
	for _, entry := range aliasTable {
		if entry.member == m {
			out := make([]string, len(entry.aliases))
			copy(out, entry.aliases)
			return out
		}
	}
	return nil
}

// GroupAliases returns the names the group is credited under.
func GroupAliases() []string {
	out := make([]string, len(groupAliases))
	copy(out, groupAliases)
	return out
}
