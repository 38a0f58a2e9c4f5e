package highlight

import (
	"html"
	"strings"
)

// HTML renders the segments with each highlight wrapped in a <mark>.
// All transcript text is escaped.
func (r Result) HTML() string {
	var sb strings.Builder
	for _, seg := range r.Segments {
		if seg.Highlight == nil {
			sb.WriteString(html.EscapeString(seg.Text))
			continue
		}
		h := seg.Highlight
		sb.WriteString(`<mark class="hl hl-`)
		sb.WriteString(html.EscapeString(h.MatchType))
		sb.WriteString(`" data-match-id="`)
		sb.WriteString(html.EscapeString(h.MatchID))
		sb.WriteString(`" data-reference-id="`)
		sb.WriteString(html.EscapeString(h.ReferenceID))
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(seg.Text))
		sb.WriteString(`</mark>`)
	}
	return sb.String()
}

// Text reassembles the transcript from the segments.
func (r Result) Text() string {
	var sb strings.Builder
	for _, seg := range r.Segments {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}
