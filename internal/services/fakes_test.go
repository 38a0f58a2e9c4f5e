package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/core/memstore"
	"github.com/markdave123-py/CoachHub/internal/core/transcript_engine"
	"github.com/markdave123-py/CoachHub/internal/models"
)

var (
	coach  = models.Viewer{Email: "coach@example.com", Role: models.RoleCoach}
	admin  = models.Viewer{Email: "admin@example.com", Role: models.RoleAdmin}
	prac   = models.Viewer{Email: "prac@example.com", Role: models.RolePractitioner}
	client = models.Viewer{Email: "ana@example.com", Role: models.RoleClient}
)

type invocation struct {
	Name    string
	Payload any
}

// fakeInvoker answers remote function calls from a table and records them.
type fakeInvoker struct {
	mu        sync.Mutex
	calls     []invocation
	responses map[string]string
	errs      map[string]error
	hooks     map[string]func(payload any)
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{responses: map[string]string{}, errs: map[string]error{}, hooks: map[string]func(any){}}
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, payload any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{Name: name, Payload: payload})
	hook := f.hooks[name]
	resp, err := f.responses[name], f.errs[name]
	f.mu.Unlock()

	if hook != nil {
		hook(payload)
	}
	if err != nil {
		return nil, err
	}
	if resp == "" {
		resp = "null"
	}
	return json.RawMessage(resp), nil
}

func (f *fakeInvoker) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

type fakeObjects struct {
	mu      sync.Mutex
	files   map[string][]byte
	failPut bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: map[string][]byte{}}
}

func (f *fakeObjects) UploadFile(_ context.Context, key string, data io.Reader, _ string) (string, error) {
	if f.failPut {
		return "", errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = b
	return "mem://" + key, nil
}

func (f *fakeObjects) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}

func (f *fakeObjects) GetFile(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

func (f *fakeObjects) KeyFromURL(u string) string {
	if !strings.HasPrefix(u, "mem://") {
		return ""
	}
	return strings.TrimPrefix(u, "mem://")
}

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[key]
	return ok
}

type fakeQueue struct {
	jobs []transcript_engine.Job
	full bool
}

func (q *fakeQueue) Enqueue(job transcript_engine.Job) error {
	if q.full {
		return transcript_engine.ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newEntities() *core.Entities {
	return memstore.NewEntities()
}

func seedClient(t *testing.T, e *core.Entities, id, email string) models.Client {
	t.Helper()
	c, err := e.Clients.Create(context.Background(), coach.Email, models.Client{
		Meta:       models.Meta{ID: id},
		FullName:   "Client " + id,
		Email:      email,
		CoachEmail: coach.Email,
	})
	require.NoError(t, err)
	return c
}

func seedSession(t *testing.T, e *core.Entities, s models.Session) models.Session {
	t.Helper()
	created, err := e.Sessions.Create(context.Background(), coach.Email, s)
	require.NoError(t, err)
	return created
}

// requireCode asserts err is a DomainError with the given code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	require.Equal(t, code, de.Code)
}

func intPtr(n int) *int { return &n }
