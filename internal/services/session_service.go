package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/core/functions"
	objectclient "github.com/markdave123-py/CoachHub/internal/core/object-client"
	"github.com/markdave123-py/CoachHub/internal/core/transcript_engine"
	"github.com/markdave123-py/CoachHub/internal/lifecycle"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// TranscriptQueue accepts transcript extraction jobs.
type TranscriptQueue interface {
	Enqueue(job transcript_engine.Job) error
}

// SessionView is a session with its derived status and display label.
type SessionView struct {
	models.Session
	DerivedStatus lifecycle.Status `json:"derived_status"`
	DateLabel     string           `json:"date_label"`
}

type SessionBoard struct {
	Active []SessionView `json:"active"`
	Past   []SessionView `json:"past"`
}

type CreateSessionInput struct {
	ClientID        string `json:"client_id"`
	Title           string `json:"title"`
	DateTime        string `json:"date_time"`
	Duration        *int   `json:"duration,omitempty"`
	PreSessionNotes string `json:"preSessionNotes,omitempty"`
}

type SessionService struct {
	sessions core.Collection[models.Session]
	clients  core.Collection[models.Client]
	invoker  core.FunctionInvoker
	objects  core.ObjectClient
	queue    TranscriptQueue
	cache    core.QueryCache
	resolver *lifecycle.Resolver
	bucket   time.Duration
	now      func() time.Time
}

// NewSessionService builds the service. Boards are cached per bucket of
// time; a zero bucket disables caching.
func NewSessionService(entities *core.Entities, invoker core.FunctionInvoker, objects core.ObjectClient, queue TranscriptQueue, cache core.QueryCache, resolver *lifecycle.Resolver, bucket time.Duration) *SessionService {
	return &SessionService{
		sessions: entities.Sessions,
		clients:  entities.Clients,
		invoker:  invoker,
		objects:  objects,
		queue:    queue,
		cache:    cache,
		resolver: resolver,
		bucket:   bucket,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *SessionService) SetClock(now func() time.Time) { s.now = now }

// List returns the viewer's sessions split into active and past, each in
// display order. clientID narrows staff views to one client.
// Statuses are resolved against every session in the viewer's scope, also
// when clientID narrows the board.
func (s *SessionService) List(ctx context.Context, viewer models.Viewer, clientID string) (*SessionBoard, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return nil, err
	}
	if scope != "" {
		if clientID != "" && clientID != scope {
			return nil, forbidden("sessions of another client")
		}
		clientID = ""
	}

	now := s.now()
	key := s.boardKey(scope, clientID, now)
	if key != "" {
		var cached SessionBoard
		hit, err := s.cache.Get(ctx, core.CacheGroupSessions, key, &cached)
		if err != nil {
			logging.Logger.Warn("session board cache read failed", "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	all, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	board := s.buildBoard(all, clientID, now)

	if key != "" {
		if err := s.cache.Set(ctx, core.CacheGroupSessions, key, board, 2*s.bucket); err != nil {
			logging.Logger.Warn("session board cache write failed", "error", err)
		}
	}
	return board, nil
}

func (s *SessionService) boardKey(scope, clientID string, now time.Time) string {
	if s.bucket <= 0 {
		return ""
	}
	if scope == "" {
		scope = "*"
	}
	if clientID == "" {
		clientID = "*"
	}
	return "board:" + scope + ":" + clientID + ":" + strconv.FormatInt(now.Truncate(s.bucket).Unix(), 10)
}

func (s *SessionService) load(ctx context.Context, clientID string) ([]models.Session, error) {
	if clientID == "" {
		return s.sessions.List(ctx, "date_time", 0)
	}
	return s.sessions.Filter(ctx, map[string]any{"client_id": clientID}, "date_time", 0)
}

// buildBoard resolves against all and keeps the sessions of clientID,
// or every session when clientID is empty.
func (s *SessionService) buildBoard(all []models.Session, clientID string, now time.Time) *SessionBoard {
	shown := all
	if clientID != "" {
		shown = make([]models.Session, 0, len(all))
		for _, session := range all {
			if session.ClientID == clientID {
				shown = append(shown, session)
			}
		}
	}
	entries := s.resolver.NewBoard(all, now).Sort(shown)
	active, past := lifecycle.Partition(entries)
	return &SessionBoard{Active: s.views(active), Past: s.views(past)}
}

func (s *SessionService) views(entries []lifecycle.Entry) []SessionView {
	out := make([]SessionView, len(entries))
	for i, e := range entries {
		out[i] = SessionView{Session: e.Session, DerivedStatus: e.Status, DateLabel: s.resolver.Label(e.Session)}
	}
	return out
}

// Get returns one session with the status it has on the viewer's board.
func (s *SessionService) Get(ctx context.Context, viewer models.Viewer, id string) (*SessionView, error) {
	session, scope, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, scope, session)
}

// view resolves session against the same list List uses for scope.
func (s *SessionService) view(ctx context.Context, scope string, session models.Session) (*SessionView, error) {
	all, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	board := s.resolver.NewBoard(all, s.now())
	return &SessionView{
		Session:       session,
		DerivedStatus: board.Status(session),
		DateLabel:     s.resolver.Label(session),
	}, nil
}

// visible loads a session in the viewer's scope and returns that scope.
func (s *SessionService) visible(ctx context.Context, viewer models.Viewer, id string) (models.Session, string, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return models.Session{}, "", err
	}
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return models.Session{}, "", lookupErr("session", err)
	}
	if !inScope(scope, session.ClientID) {
		return models.Session{}, "", notFound("session")
	}
	return session, scope, nil
}

// staffSession loads a session a staff member is about to change.
func (s *SessionService) staffSession(ctx context.Context, viewer models.Viewer, id string) (models.Session, string, error) {
	if err := requireStaff(viewer); err != nil {
		return models.Session{}, "", err
	}
	return s.visible(ctx, viewer, id)
}

// Create schedules a session through the calendar function, which creates
// the record and the calendar event together.
func (s *SessionService) Create(ctx context.Context, viewer models.Viewer, in CreateSessionInput) (*SessionView, error) {
	if err := requireStaff(viewer); err != nil {
		return nil, err
	}
	if in.ClientID == "" {
		return nil, validation("client_id is required")
	}
	if in.Title == "" {
		return nil, validation("title is required")
	}
	if _, ok := s.resolver.ParseDateTime(in.DateTime); !ok {
		return nil, validation("date_time must be a valid timestamp")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, validation("duration must not be negative")
	}
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return nil, err
	}
	if !inScope(scope, in.ClientID) {
		return nil, forbidden("sessions of another client")
	}
	if _, err := s.clients.Get(ctx, in.ClientID); err != nil {
		return nil, lookupErr("client", err)
	}

	raw, err := s.invoker.Invoke(ctx, functions.CreateSessionWithCalendar, in)
	if err != nil {
		return nil, remoteFailure(err)
	}
	s.invalidate(ctx)

	session, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, scope, session)
}

// decodeSession accepts either {"session": {...}} or the bare record.
func decodeSession(raw json.RawMessage) (models.Session, error) {
	var wrapped struct {
		Session *models.Session `json:"session"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Session != nil {
		return *wrapped.Session, nil
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode created session: %w", err)
	}
	if session.ID == "" {
		return models.Session{}, fmt.Errorf("created session has no id")
	}
	return session, nil
}

// Complete marks the persisted status completed.
func (s *SessionService) Complete(ctx context.Context, viewer models.Viewer, id string) (*SessionView, error) {
	_, scope, err := s.staffSession(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.sessions.Update(ctx, id, map[string]any{"status": "completed"})
	if err != nil {
		return nil, lookupErr("session", err)
	}
	s.invalidate(ctx)
	return s.view(ctx, scope, updated)
}

// Delete removes the session and its uploaded transcript.
func (s *SessionService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	session, _, err := s.staffSession(ctx, viewer, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return lookupErr("session", err)
	}
	s.invalidate(ctx)

	if key := s.objects.KeyFromURL(session.TranscriptFileURL); key != "" {
		if err := s.objects.DeleteFile(ctx, key); err != nil {
			logging.Logger.Warn("transcript object not deleted", "session_id", id, "key", key, "error", err)
		}
	}
	return nil
}

// SyncCalendar asks the platform to refresh calendar and RSVP state. The
// function's result is passed through.
func (s *SessionService) SyncCalendar(ctx context.Context, viewer models.Viewer) (json.RawMessage, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{}
	if scope != "" {
		payload["client_id"] = scope
	}
	raw, err := s.invoker.Invoke(ctx, functions.SyncCalendarStatus, payload)
	if err != nil {
		return nil, remoteFailure(err)
	}
	s.invalidate(ctx)
	return raw, nil
}

// Backfill pulls recording, transcript and notes artifacts from Meet for
// one session and returns the refreshed session.
func (s *SessionService) Backfill(ctx context.Context, viewer models.Viewer, id string) (*SessionView, error) {
	_, scope, err := s.staffSession(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.invoker.Invoke(ctx, functions.BackfillMeetArtifacts, map[string]any{"session_id": id}); err != nil {
		return nil, remoteFailure(err)
	}
	s.invalidate(ctx)

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, lookupErr("session", err)
	}
	return s.view(ctx, scope, session)
}

// UploadTranscript stores a transcript document and queues its text
// extraction. The session's transcript is filled in once extraction ends.
func (s *SessionService) UploadTranscript(ctx context.Context, viewer models.Viewer, id, filename, contentType string, data io.Reader) (*SessionView, error) {
	session, scope, err := s.staffSession(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, validation("file name is required")
	}

	key := objectclient.ObjectKey("transcripts", session.ClientID, session.ID, filename)
	url, err := s.objects.UploadFile(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload transcript: %w", err)
	}
	if old := s.objects.KeyFromURL(session.TranscriptFileURL); old != "" && old != key {
		if err := s.objects.DeleteFile(ctx, old); err != nil {
			logging.Logger.Warn("previous transcript not deleted", "session_id", id, "key", old, "error", err)
		}
	}

	updated, err := s.sessions.Update(ctx, id, map[string]any{"transcript_file_url": url})
	if err != nil {
		return nil, lookupErr("session", err)
	}
	s.invalidate(ctx)

	if err := s.queue.Enqueue(transcript_engine.Job{SessionID: id, ContentType: contentType}); err != nil {
		return nil, domainError(http.StatusServiceUnavailable, "QUEUE_FULL", "transcript stored but extraction is busy, retry the upload later", nil)
	}
	return s.view(ctx, scope, updated)
}

func (s *SessionService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, core.CacheGroupSessions); err != nil {
		logging.Logger.Warn("session cache invalidation failed", "error", err)
	}
}
