package core

import (
	"context"
)

// TranscriptExtractor turns an uploaded transcript document into plain text.
// The contentType hint helps the extractor choose the right parsing strategy.
type TranscriptExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
