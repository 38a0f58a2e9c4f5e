package transcript_engine

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/CoachHub/internal/core"
)

var _ core.TranscriptExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor converts office documents, PDFs and HTML with docconv.
// Plain text formats (txt, vtt, srt) are passed through unchanged.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	if isPlainText(mediaType) {
		return normalizeText(string(data)), nil
	}

	res, err := docconv.Convert(bytes.NewReader(data), mediaType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", mediaType, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return normalizeText(res.Body), nil
}

func isPlainText(mediaType string) bool {
	switch mediaType {
	case "text/plain", "text/vtt", "application/x-subrip", "text/markdown":
		return true
	}
	return false
}

// ContentTypeFor guesses the media type of a stored transcript from its key.
func ContentTypeFor(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".vtt"):
		return "text/vtt"
	case strings.HasSuffix(lower, ".srt"):
		return "application/x-subrip"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	}
	return docconv.MimeTypeByExtension(key)
}

// normalizeText unifies line endings and drops trailing blanks on each line.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
