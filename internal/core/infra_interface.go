package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/markdave123-py/CoachHub/internal/models"
)

// ErrNotFound is returned by collections for unknown ids.
var ErrNotFound = errors.New("record not found")

// Collection is the platform's per-entity data access facade.
// Sort strings follow the platform convention: "field" ascending,
// "-field" descending. A limit <= 0 means no limit.
type Collection[T any] interface {
	List(ctx context.Context, sort string, limit int) ([]T, error)
	Filter(ctx context.Context, query map[string]any, sort string, limit int) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, createdBy string, v T) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
}

// Entities groups the collections the API works with.
type Entities struct {
	Sessions          Collection[models.Session]
	Files             Collection[models.File]
	Notes             Collection[models.Note]
	AppliedReferences Collection[models.AppliedReference]
	Actions           Collection[models.Action]
	Clients           Collection[models.Client]
	KnowledgeBase     Collection[models.KnowledgeBaseArticle]
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	// KeyFromURL maps a URL returned by UploadFile back to its key.
	// It returns "" for URLs outside the store.
	KeyFromURL(url string) string
}

// FunctionInvoker calls the platform's named remote functions.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error)
}

// QueryCache stores query results under named groups. Invalidating a
// group drops everything cached under it.
type QueryCache interface {
	Get(ctx context.Context, group, key string, dst any) (bool, error)
	Set(ctx context.Context, group, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, group string) error
}

// CacheGroupSessions holds derived session boards. Session mutations
// invalidate it.
const CacheGroupSessions = "sessions"
