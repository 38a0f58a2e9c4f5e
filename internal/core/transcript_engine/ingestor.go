package transcript_engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// ErrQueueFull is returned by Enqueue when no worker can take the job.
var ErrQueueFull = errors.New("transcript queue is full")

// Job asks for the transcript file of a session to be turned into text.
// An empty or generic ContentType is guessed from the object key.
type Job struct {
	SessionID   string
	ContentType string
}

// Ingestor extracts uploaded transcripts in the background and stores the
// text on the session.
type Ingestor struct {
	sessions  core.Collection[models.Session]
	obj       core.ObjectClient
	extractor core.TranscriptExtractor
	cache     core.QueryCache
	timeout   time.Duration

	jobs  chan Job
	group *errgroup.Group
}

// NewIngestor constructs the ingestor with a bounded job queue (64).
func NewIngestor(sessions core.Collection[models.Session], obj core.ObjectClient, extractor core.TranscriptExtractor, cache core.QueryCache) *Ingestor {
	return &Ingestor{
		sessions:  sessions,
		obj:       obj,
		extractor: extractor,
		cache:     cache,
		timeout:   5 * time.Minute,
		jobs:      make(chan Job, 64),
	}
}

// Start runs numWorkers goroutines reading from the job queue until ctx
// is cancelled. Wait blocks until they have all returned.
func (i *Ingestor) Start(ctx context.Context, numWorkers int) {
	g, gctx := errgroup.WithContext(ctx)
	i.group = g
	for w := 1; w <= numWorkers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					logging.Logger.Debug("transcript worker stopping", "worker", w)
					return nil
				case job := <-i.jobs:
					logging.Logger.Info("processing transcript", "session_id", job.SessionID, "worker", w)
					if err := i.ProcessOne(gctx, job); err != nil {
						logging.Logger.Error("transcript ingestion failed", "session_id", job.SessionID, "error", err)
					}
				}
			}
		})
	}
}

func (i *Ingestor) Wait() error {
	if i.group == nil {
		return nil
	}
	return i.group.Wait()
}

// Enqueue schedules a job without blocking.
func (i *Ingestor) Enqueue(job Job) error {
	select {
	case i.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// ProcessOne fetches the session's transcript file, extracts its text and
// saves it as the session transcript.
func (i *Ingestor) ProcessOne(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	session, err := i.sessions.Get(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.TranscriptFileURL == "" {
		return fmt.Errorf("session %s has no transcript file", session.ID)
	}
	key := i.obj.KeyFromURL(session.TranscriptFileURL)
	if key == "" {
		return fmt.Errorf("transcript url %q is not in the bucket", session.TranscriptFileURL)
	}

	data, err := i.obj.GetFile(ctx, key)
	if err != nil {
		return fmt.Errorf("get transcript object: %w", err)
	}

	contentType := job.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(key)
	}
	text, err := i.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		return fmt.Errorf("extract transcript: %w", err)
	}
	if text == "" {
		return fmt.Errorf("transcript for session %s is empty", session.ID)
	}

	if _, err := i.sessions.Update(ctx, session.ID, map[string]any{"transcript": text}); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if err := i.cache.Invalidate(ctx, core.CacheGroupSessions); err != nil {
		logging.Logger.Warn("session cache invalidation failed", "error", err)
	}
	logging.Logger.Info("transcript stored", "session_id", session.ID, "chars", len(text))
	return nil
}
