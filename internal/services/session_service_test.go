package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/core/functions"
	"github.com/markdave123-py/CoachHub/internal/core/querycache"
	"github.com/markdave123-py/CoachHub/internal/lifecycle"
	"github.com/markdave123-py/CoachHub/internal/models"
)

var boardNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type sessionFixture struct {
	entities *core.Entities
	invoker  *fakeInvoker
	objects  *fakeObjects
	queue    *fakeQueue
	svc      *SessionService
}

func newSessionFixture(t *testing.T, cache core.QueryCache, bucket time.Duration) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		entities: newEntities(),
		invoker:  newFakeInvoker(),
		objects:  newFakeObjects(),
		queue:    &fakeQueue{},
	}
	f.svc = NewSessionService(f.entities, f.invoker, f.objects, f.queue, cache, lifecycle.NewResolver(time.UTC), bucket)
	f.svc.SetClock(func() time.Time { return boardNow })

	seedClient(t, f.entities, "c1", client.Email)
	seedClient(t, f.entities, "c2", "ben@example.com")
	for _, s := range []models.Session{
		{Meta: models.Meta{ID: "s-past"}, ClientID: "c1", Title: "Kickoff", DateTime: "2025-03-09T10:00:00Z"},
		{Meta: models.Meta{ID: "s-next"}, ClientID: "c1", Title: "Follow-up", DateTime: "2025-03-10T15:00:00Z"},
		{Meta: models.Meta{ID: "s-later"}, ClientID: "c1", Title: "Review", DateTime: "2025-03-11T10:00:00Z"},
		{Meta: models.Meta{ID: "s-cancel"}, ClientID: "c1", Title: "Dropped", DateTime: "2025-03-12T10:00:00Z", GoogleCalendarStatus: "cancelled"},
		{Meta: models.Meta{ID: "s-now"}, ClientID: "c1", Title: "Live", DateTime: "2025-03-10T11:45:00Z", Duration: intPtr(30)},
		{Meta: models.Meta{ID: "s-nodate"}, ClientID: "c1", Title: "Someday"},
		{Meta: models.Meta{ID: "s-other"}, ClientID: "c2", Title: "Other client", DateTime: "2025-03-10T13:00:00Z"},
	} {
		seedSession(t, f.entities, s)
	}
	return f
}

func ids(views []SessionView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestSessionList_ClientBoard(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)

	board, err := f.svc.List(context.Background(), client, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"s-now", "s-next", "s-nodate", "s-later"}, ids(board.Active))
	assert.Equal(t, []string{"s-past", "s-cancel"}, ids(board.Past))

	assert.Equal(t, lifecycle.StatusInProgress, board.Active[0].DerivedStatus)
	assert.Equal(t, lifecycle.StatusUpcoming, board.Active[1].DerivedStatus)
	assert.Equal(t, lifecycle.StatusScheduled, board.Active[2].DerivedStatus)
	assert.Equal(t, lifecycle.InvalidDateLabel, board.Active[2].DateLabel)
	assert.Equal(t, lifecycle.StatusCancelled, board.Past[1].DerivedStatus)
}

func TestSessionList_Scoping(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	t.Run("client cannot ask for another client", func(t *testing.T) {
		_, err := f.svc.List(ctx, client, "c2")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("client without profile", func(t *testing.T) {
		_, err := f.svc.List(ctx, models.Viewer{Email: "nobody@example.com", Role: models.RoleClient}, "")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("staff acting as a client", func(t *testing.T) {
		viewer := coach
		viewer.ActingAsID = "c2"
		board, err := f.svc.List(ctx, viewer, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"s-other"}, ids(board.Active))
		assert.Empty(t, board.Past)
	})

	t.Run("staff sees every client", func(t *testing.T) {
		board, err := f.svc.List(ctx, coach, "")
		require.NoError(t, err)
		assert.Len(t, append(board.Active, board.Past...), 7)
		// the other client's 13:00 session is now the nearest upcoming one
		assert.Equal(t, "s-other", board.Active[1].ID)
		assert.Equal(t, lifecycle.StatusUpcoming, board.Active[1].DerivedStatus)
	})
}

func TestSessionList_CachedUntilInvalidated(t *testing.T) {
	s := miniredis.RunT(t)
	cache, err := querycache.NewRedisCache("redis://" + s.Addr())
	require.NoError(t, err)
	defer cache.Close()

	f := newSessionFixture(t, cache, time.Minute)
	ctx := context.Background()

	first, err := f.svc.List(ctx, coach, "c1")
	require.NoError(t, err)

	// written behind the service's back, so the cached board is stale
	seedSession(t, f.entities, models.Session{Meta: models.Meta{ID: "s-sneaky"}, ClientID: "c1", Title: "x", DateTime: "2025-03-20T10:00:00Z"})
	cached, err := f.svc.List(ctx, coach, "c1")
	require.NoError(t, err)
	assert.Equal(t, ids(first.Active), ids(cached.Active))

	_, err = f.svc.Complete(ctx, coach, "s-past")
	require.NoError(t, err)

	fresh, err := f.svc.List(ctx, coach, "c1")
	require.NoError(t, err)
	assert.Contains(t, ids(fresh.Active), "s-sneaky")
}

func TestSessionGet(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	v, err := f.svc.Get(ctx, client, "s-next")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusUpcoming, v.DerivedStatus)
	assert.Equal(t, "Mon, Mar 10, 2025 3:00 PM", v.DateLabel)

	_, err = f.svc.Get(ctx, client, "s-other")
	requireCode(t, err, "NOT_FOUND")

	_, err = f.svc.Get(ctx, coach, "missing")
	requireCode(t, err, "NOT_FOUND")
}

func TestSessionGet_MatchesBoard(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	actingAs := coach
	actingAs.ActingAsID = "c1"

	tests := []struct {
		name     string
		viewer   models.Viewer
		clientID string
		upcoming string
	}{
		{"staff board", coach, "", "s-other"},
		{"staff board narrowed to one client", coach, "c1", "s-other"},
		{"client board", client, "", "s-next"},
		{"staff acting as client", actingAs, "", "s-next"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := f.svc.List(ctx, tt.viewer, tt.clientID)
			require.NoError(t, err)

			var upcoming []string
			for _, entry := range append(board.Active, board.Past...) {
				v, err := f.svc.Get(ctx, tt.viewer, entry.ID)
				require.NoError(t, err)
				assert.Equal(t, entry.DerivedStatus, v.DerivedStatus, "session %s", entry.ID)
				if v.DerivedStatus == lifecycle.StatusUpcoming {
					upcoming = append(upcoming, v.ID)
				}
			}
			if tt.clientID == "" {
				assert.Equal(t, []string{tt.upcoming}, upcoming)
			}

			v, err := f.svc.Get(ctx, tt.viewer, tt.upcoming)
			require.NoError(t, err)
			assert.Equal(t, lifecycle.StatusUpcoming, v.DerivedStatus)
		})
	}

	v, err := f.svc.Get(ctx, coach, "s-next")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusScheduled, v.DerivedStatus)
}

func TestSessionCreate(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()
	f.invoker.responses[functions.CreateSessionWithCalendar] = `{"session":{"id":"s-new","client_id":"c1","title":"Intake","date_time":"2025-03-14T09:00:00Z"}}`

	v, err := f.svc.Create(ctx, coach, CreateSessionInput{ClientID: "c1", Title: "Intake", DateTime: "2025-03-14T09:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "s-new", v.ID)
	assert.Equal(t, 1, f.invoker.called(functions.CreateSessionWithCalendar))

	tests := []struct {
		name string
		in   CreateSessionInput
		code string
	}{
		{"missing client", CreateSessionInput{Title: "x", DateTime: "2025-03-14T09:00:00Z"}, "VALIDATION_ERROR"},
		{"missing title", CreateSessionInput{ClientID: "c1", DateTime: "2025-03-14T09:00:00Z"}, "VALIDATION_ERROR"},
		{"bad date", CreateSessionInput{ClientID: "c1", Title: "x", DateTime: "next tuesday"}, "VALIDATION_ERROR"},
		{"negative duration", CreateSessionInput{ClientID: "c1", Title: "x", DateTime: "2025-03-14T09:00:00Z", Duration: intPtr(-5)}, "VALIDATION_ERROR"},
		{"unknown client", CreateSessionInput{ClientID: "c9", Title: "x", DateTime: "2025-03-14T09:00:00Z"}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, coach, tt.in)
			requireCode(t, err, tt.code)
		})
	}

	_, err = f.svc.Create(ctx, client, CreateSessionInput{ClientID: "c1", Title: "x", DateTime: "2025-03-14T09:00:00Z"})
	requireCode(t, err, "FORBIDDEN")
}

func TestSessionCreate_RemoteFailure(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	f.invoker.errs[functions.CreateSessionWithCalendar] = &functions.RemoteError{
		Function: functions.CreateSessionWithCalendar, Status: 401, Message: "calendar not connected",
	}

	_, err := f.svc.Create(context.Background(), coach, CreateSessionInput{ClientID: "c1", Title: "x", DateTime: "2025-03-14T09:00:00Z"})
	requireCode(t, err, "REMOTE_FUNCTION_FAILED")

	status, _, message, _ := MapError(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "calendar not connected", message)
}

func TestSessionComplete(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	v, err := f.svc.Complete(ctx, coach, "s-now")
	require.NoError(t, err)
	assert.Equal(t, "completed", v.Status)

	_, err = f.svc.Complete(ctx, client, "s-next")
	requireCode(t, err, "FORBIDDEN")
}

func TestSessionSyncAndBackfill(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()
	f.invoker.responses[functions.SyncCalendarStatus] = `{"updated":2}`
	f.invoker.hooks[functions.BackfillMeetArtifacts] = func(payload any) {
		id := payload.(map[string]any)["session_id"].(string)
		_, _ = f.entities.Sessions.Update(ctx, id, map[string]any{"transcript": "Coach: welcome back"})
	}

	raw, err := f.svc.SyncCalendar(ctx, client)
	require.NoError(t, err)
	assert.JSONEq(t, `{"updated":2}`, string(raw))
	assert.Equal(t, map[string]any{"client_id": "c1"}, f.invoker.calls[0].Payload)

	v, err := f.svc.Backfill(ctx, coach, "s-past")
	require.NoError(t, err)
	assert.Equal(t, "Coach: welcome back", v.Transcript)

	_, err = f.svc.Backfill(ctx, client, "s-past")
	requireCode(t, err, "FORBIDDEN")
}

func TestSessionUploadTranscript(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	v, err := f.svc.UploadTranscript(ctx, coach, "s-past", "kickoff call.txt", "text/plain", strings.NewReader("Coach: hi"))
	require.NoError(t, err)

	assert.Equal(t, "mem://transcripts/c1/s-past/kickoff_call.txt", v.TranscriptFileURL)
	assert.True(t, f.objects.has("transcripts/c1/s-past/kickoff_call.txt"))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "s-past", f.queue.jobs[0].SessionID)
	assert.Equal(t, "text/plain", f.queue.jobs[0].ContentType)

	f.queue.full = true
	_, err = f.svc.UploadTranscript(ctx, coach, "s-past", "again.txt", "text/plain", strings.NewReader("x"))
	requireCode(t, err, "QUEUE_FULL")
	assert.False(t, f.objects.has("transcripts/c1/s-past/kickoff_call.txt"), "replaced transcript is removed")
}

func TestSessionDelete(t *testing.T) {
	f := newSessionFixture(t, querycache.Noop{}, 0)
	ctx := context.Background()

	_, err := f.svc.UploadTranscript(ctx, coach, "s-past", "t.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, coach, "s-past"))
	assert.False(t, f.objects.has("transcripts/c1/s-past/t.txt"))

	_, err = f.svc.Get(ctx, coach, "s-past")
	requireCode(t, err, "NOT_FOUND")

	requireCode(t, f.svc.Delete(ctx, coach, "s-past"), "NOT_FOUND")
	requireCode(t, f.svc.Delete(ctx, client, "s-next"), "FORBIDDEN")
}
