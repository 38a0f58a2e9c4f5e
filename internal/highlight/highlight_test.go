package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/CoachHub/internal/models"
)

func ref(id, matchType string, excerpts ...string) models.AppliedReference {
	r := models.AppliedReference{Meta: models.Meta{ID: id}, MatchType: matchType}
	for _, e := range excerpts {
		r.MatchedSections = append(r.MatchedSections, models.MatchedSection{TranscriptExcerpt: e})
	}
	return r
}

func highlighted(res Result) []Segment {
	var out []Segment
	for _, s := range res.Segments {
		if s.Highlight != nil {
			out = append(out, s)
		}
	}
	return out
}

func TestHighlight_Basic(t *testing.T) {
	transcript := "Client: I have trouble sleeping at night. Coach: Let's talk about magnesium."
	res := Highlight(transcript, []models.AppliedReference{
		ref("r1", "symptom_match", "trouble sleeping"),
		ref("r2", "supplement_match", "MAGNESIUM"),
	})

	hl := highlighted(res)
	require.Len(t, hl, 2)
	assert.Equal(t, "trouble sleeping", hl[0].Text)
	assert.Equal(t, Span{MatchType: "symptom_match", ReferenceID: "r1", MatchID: "r1-0"}, *hl[0].Highlight)
	assert.Equal(t, "magnesium", hl[1].Text, "matching ignores case and keeps transcript text")
	assert.Equal(t, "r2-0", hl[1].Highlight.MatchID)
	assert.Equal(t, transcript, res.Text())
	assert.Equal(t, "r1", res.MatchIndex["r1-0"])
	assert.Equal(t, "r2", res.MatchIndex["r2-0"])
}

func TestHighlight_NestedExcerptDoesNotBreakLongerSpan(t *testing.T) {
	transcript := "We discussed poor sleep quality and sleep again later."
	res := Highlight(transcript, []models.AppliedReference{
		ref("short", "symptom_match", "sleep"),
		ref("long", "topic_match", "poor sleep quality"),
	})

	hl := highlighted(res)
	require.Len(t, hl, 2)
	assert.Equal(t, "poor sleep quality", hl[0].Text)
	assert.Equal(t, "long-0", hl[0].Highlight.MatchID)
	assert.Equal(t, "sleep", hl[1].Text)
	assert.Equal(t, "short-0", hl[1].Highlight.MatchID)
	assert.Equal(t, transcript, res.Text())
}

func TestHighlight_ContainedOnlyExcerptPointsAtEnclosingSpan(t *testing.T) {
	transcript := "The client mentioned chronic fatigue syndrome."
	res := Highlight(transcript, []models.AppliedReference{
		ref("a", "symptom_match", "fatigue"),
		ref("b", "topic_match", "chronic fatigue syndrome"),
	})

	require.Len(t, highlighted(res), 1)
	section := res.References[0].Sections[0]
	assert.False(t, section.Found)
	assert.Equal(t, "b-0", section.ContainedIn)
	assert.True(t, res.References[1].Sections[0].Found)
}

func TestHighlight_MissingExcerptIsNoop(t *testing.T) {
	transcript := "Nothing relevant here."
	res := Highlight(transcript, []models.AppliedReference{
		ref("r1", "topic_match", "paraphrased content", "", "   "),
	})

	assert.Empty(t, highlighted(res))
	require.Len(t, res.Segments, 1)
	assert.Equal(t, transcript, res.Segments[0].Text)
	require.Len(t, res.References, 1)
	require.Len(t, res.References[0].Sections, 1, "blank excerpts are skipped")
	assert.False(t, res.References[0].Sections[0].Found)
}

func TestHighlight_ExcerptMatchedAsGiven(t *testing.T) {
	transcript := "Client: always tired.\nCoach: noted"
	res := Highlight(transcript, []models.AppliedReference{
		ref("r1", "symptom_match", " always tired"),
		ref("r2", "general_match", "noted   "),
		ref("r3", "general_match", "   "),
	})

	hl := highlighted(res)
	require.Len(t, hl, 1)
	assert.Equal(t, " always tired", hl[0].Text)
	assert.True(t, res.References[0].Sections[0].Found)
	assert.False(t, res.References[1].Sections[0].Found, "trailing blanks are part of the excerpt")
	assert.Empty(t, res.References[2].Sections, "blank excerpts are skipped")
	assert.Equal(t, transcript, res.Text())
}

func TestHighlight_RegexCharactersAreLiteral(t *testing.T) {
	transcript := "Dose (2x/day) of vitamin D? yes. Dose 2xxday no."
	res := Highlight(transcript, []models.AppliedReference{ref("r1", "", "(2x/day) of vitamin D?")})

	hl := highlighted(res)
	require.Len(t, hl, 1)
	assert.Equal(t, "(2x/day) of vitamin D?", hl[0].Text)
	assert.Equal(t, models.DefaultMatchType, hl[0].Highlight.MatchType)
}

func TestHighlight_AllOccurrences(t *testing.T) {
	res := Highlight("stress at work, stress at home", []models.AppliedReference{ref("r1", "topic_match", "stress")})
	hl := highlighted(res)
	require.Len(t, hl, 2)
	assert.Equal(t, hl[0].Highlight.MatchID, hl[1].Highlight.MatchID)
}

func TestHighlight_SectionMatchTypeAndIndex(t *testing.T) {
	r := models.AppliedReference{
		Meta:      models.Meta{ID: "r9"},
		MatchType: "goal_match",
		MatchedSections: models.SectionList{
			{TranscriptExcerpt: ""},
			{TranscriptExcerpt: "walk daily", MatchType: "lifestyle_match", Speaker: "Client", TranscriptTimestamp: "00:03:10"},
		},
	}
	res := Highlight("I want to walk daily.", []models.AppliedReference{r})

	hl := highlighted(res)
	require.Len(t, hl, 1)
	assert.Equal(t, "r9-1", hl[0].Highlight.MatchID, "match index is the section position")
	assert.Equal(t, "lifestyle_match", hl[0].Highlight.MatchType)

	section := res.References[0].Sections[0]
	assert.Equal(t, 1, section.Index)
	assert.Equal(t, "Client", section.Speaker)
	assert.Equal(t, "00:03:10", section.Timestamp)
	assert.True(t, section.Found)
}

func TestHTML_EscapesAndWraps(t *testing.T) {
	res := Highlight("a <b> & sleep", []models.AppliedReference{ref("r1", "symptom_match", "sleep")})
	assert.Equal(t,
		`a &lt;b&gt; &amp; <mark class="hl hl-symptom_match" data-match-id="r1-0" data-reference-id="r1">sleep</mark>`,
		res.HTML())
}

func TestHighlight_EmptyTranscript(t *testing.T) {
	res := Highlight("", []models.AppliedReference{ref("r1", "topic_match", "x")})
	assert.Empty(t, res.Segments)
	assert.Equal(t, "", res.HTML())
}
