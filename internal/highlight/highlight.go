// Package highlight marks the transcript excerpts that analysis references
// point at, so the client can link a highlighted span and its reference
// card in both directions.
package highlight

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/CoachHub/internal/models"
)

// Span is the annotation carried by a highlighted segment.
type Span struct {
	MatchType   string `json:"matchType"`
	ReferenceID string `json:"referenceId"`
	MatchID     string `json:"matchId"`
}

// Segment is a run of transcript text, highlighted or plain.
type Segment struct {
	Text      string `json:"text"`
	Highlight *Span  `json:"highlight,omitempty"`
}

// SectionLink describes one matched section of a reference card.
// ContainedIn is set when the excerpt only occurs inside another, longer
// highlight; the client scrolls to that span instead.
type SectionLink struct {
	MatchID     string `json:"matchId"`
	Index       int    `json:"index"`
	Excerpt     string `json:"excerpt"`
	MatchType   string `json:"matchType"`
	Timestamp   string `json:"transcriptTimestamp,omitempty"`
	Speaker     string `json:"speaker,omitempty"`
	Found       bool   `json:"found"`
	ContainedIn string `json:"containedIn,omitempty"`
}

type ReferenceLinks struct {
	ReferenceID string        `json:"referenceId"`
	Sections    []SectionLink `json:"sections"`
}

type Result struct {
	Segments   []Segment         `json:"segments"`
	References []ReferenceLinks  `json:"references"`
	MatchIndex map[string]string `json:"matchIndex"` // matchId -> referenceId
}

type excerpt struct {
	text        string
	matchType   string
	referenceID string
	matchIndex  int
	ref, sec    int // positions in Result.References
}

func (e excerpt) matchID() string {
	return MatchID(e.referenceID, e.matchIndex)
}

// MatchID is the key shared by a highlighted span and its section control.
func MatchID(referenceID string, matchIndex int) string {
	return referenceID + "-" + strconv.Itoa(matchIndex)
}

type claim struct {
	start, end int
	span       Span
}

// Highlight annotates transcript with every excerpt found in refs.
// Longer excerpts are placed first and an occurrence never overlaps an
// earlier one, so nested excerpts cannot split a longer span. Excerpts
// that do not occur verbatim (ignoring case) are skipped.
func Highlight(transcript string, refs []models.AppliedReference) Result {
	res := Result{
		References: make([]ReferenceLinks, 0, len(refs)),
		MatchIndex: map[string]string{},
	}

	var excerpts []excerpt
	for ri, ref := range refs {
		links := ReferenceLinks{ReferenceID: ref.ID, Sections: []SectionLink{}}
		for si, sec := range ref.MatchedSections {
			text := sec.TranscriptExcerpt
			if strings.TrimSpace(text) == "" {
				continue
			}
			mt := sec.MatchType
			if mt == "" {
				mt = ref.MatchType
			}
			e := excerpt{
				text:        text,
				matchType:   models.NormalizeMatchType(mt),
				referenceID: ref.ID,
				matchIndex:  si,
				ref:         ri,
				sec:         len(links.Sections),
			}
			excerpts = append(excerpts, e)
			links.Sections = append(links.Sections, SectionLink{
				MatchID:   e.matchID(),
				Index:     si,
				Excerpt:   text,
				MatchType: e.matchType,
				Timestamp: sec.TranscriptTimestamp,
				Speaker:   sec.Speaker,
			})
			res.MatchIndex[e.matchID()] = ref.ID
		}
		res.References = append(res.References, links)
	}

	sort.SliceStable(excerpts, func(i, j int) bool {
		return utf8.RuneCountInString(excerpts[i].text) > utf8.RuneCountInString(excerpts[j].text)
	})

	var claims []claim
	for _, e := range excerpts {
		link := &res.References[e.ref].Sections[e.sec]
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(e.text))
		for _, loc := range re.FindAllStringIndex(transcript, -1) {
			if owner, blocked := overlapping(claims, loc[0], loc[1]); blocked {
				if link.ContainedIn == "" && owner.start <= loc[0] && loc[1] <= owner.end {
					link.ContainedIn = owner.span.MatchID
				}
				continue
			}
			claims = append(claims, claim{
				start: loc[0],
				end:   loc[1],
				span:  Span{MatchType: e.matchType, ReferenceID: e.referenceID, MatchID: e.matchID()},
			})
			link.Found = true
		}
		if link.Found {
			link.ContainedIn = ""
		}
	}

	res.Segments = segments(transcript, claims)
	return res
}

func overlapping(claims []claim, start, end int) (claim, bool) {
	for _, c := range claims {
		if start < c.end && c.start < end {
			return c, true
		}
	}
	return claim{}, false
}

func segments(transcript string, claims []claim) []Segment {
	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })

	out := make([]Segment, 0, 2*len(claims)+1)
	pos := 0
	for _, c := range claims {
		if c.start > pos {
			out = append(out, Segment{Text: transcript[pos:c.start]})
		}
		span := c.span
		out = append(out, Segment{Text: transcript[c.start:c.end], Highlight: &span})
		pos = c.end
	}
	if pos < len(transcript) {
		out = append(out, Segment{Text: transcript[pos:]})
	}
	return out
}
