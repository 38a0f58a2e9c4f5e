// Package memstore is an in-memory implementation of the entity facade.
// It backs ENTITY_BACKEND=memory and the service tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
)

var _ core.Collection[struct{}] = (*Collection[struct{}])(nil)

// Collection keeps records as JSON documents so filters and patches behave
// like the database-backed collection.
type Collection[T any] struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
	seq  []string // insertion order
	now  func() time.Time
}

func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{docs: map[string]map[string]any{}, now: time.Now}
}

// NewEntities returns empty in-memory collections for every entity type.
func NewEntities() *core.Entities {
	return &core.Entities{
		Sessions:          NewCollection[models.Session](),
		Files:             NewCollection[models.File](),
		Notes:             NewCollection[models.Note](),
		AppliedReferences: NewCollection[models.AppliedReference](),
		Actions:           NewCollection[models.Action](),
		Clients:           NewCollection[models.Client](),
		KnowledgeBase:     NewCollection[models.KnowledgeBaseArticle](),
	}
}

// SetClock replaces the time source used for created/updated dates.
func (c *Collection[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Collection[T]) List(ctx context.Context, sort string, limit int) ([]T, error) {
	return c.Filter(ctx, nil, sort, limit)
}

func (c *Collection[T]) Filter(_ context.Context, query map[string]any, sortBy string, limit int) ([]T, error) {
	want, err := normalize(query)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	var matched []map[string]any
	for _, id := range c.seq {
		doc := c.docs[id]
		if matches(doc, want) {
			matched = append(matched, doc)
		}
	}
	c.mu.RUnlock()

	sortDocs(matched, sortBy)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]T, 0, len(matched))
	for _, doc := range matched {
		v, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) Get(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	doc, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	return decode[T](doc)
}

func (c *Collection[T]) Create(_ context.Context, createdBy string, v T) (T, error) {
	var zero T
	doc, err := normalize(v)
	if err != nil {
		return zero, err
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	now := c.now().UTC().Format(time.RFC3339Nano)
	doc["id"] = id
	doc["created_by"] = createdBy
	doc["created_date"] = now
	doc["updated_date"] = now

	c.mu.Lock()
	if _, exists := c.docs[id]; exists {
		c.mu.Unlock()
		return zero, fmt.Errorf("record %s already exists", id)
	}
	c.docs[id] = doc
	c.seq = append(c.seq, id)
	c.mu.Unlock()

	return decode[T](doc)
}

func (c *Collection[T]) Update(_ context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	p, err := normalize(patch)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	doc, ok := c.docs[id]
	if !ok {
		c.mu.Unlock()
		return zero, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	next := make(map[string]any, len(doc)+len(p))
	for k, v := range doc {
		next[k] = v
	}
	for k, v := range p {
		switch k {
		case "id", "created_by", "created_date", "updated_date":
			continue
		}
		next[k] = v
	}
	next["updated_date"] = c.now().UTC().Format(time.RFC3339Nano)
	c.docs[id] = next
	c.mu.Unlock()

	return decode[T](next)
}

func (c *Collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	delete(c.docs, id)
	for i, v := range c.seq {
		if v == id {
			c.seq = append(c.seq[:i], c.seq[i+1:]...)
			break
		}
	}
	return nil
}

// normalize round-trips v through JSON so stored values have JSON types.
func normalize(v any) (map[string]any, error) {
	out := map[string]any{}
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return out, nil
}

func decode[T any](doc map[string]any) (T, error) {
	var v T
	raw, err := json.Marshal(doc)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(raw, &v)
	return v, err
}

func matches(doc, want map[string]any) bool {
	for k, v := range want {
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}

// sortDocs orders by the string form of a field, missing values first,
// matching the database collection. Ties keep insertion order.
func sortDocs(docs []map[string]any, sortBy string) {
	field, desc := strings.TrimSpace(sortBy), false
	if field == "" {
		field, desc = "created_date", true
	} else if strings.HasPrefix(field, "-") {
		field, desc = field[1:], true
	} else {
		field = strings.TrimPrefix(field, "+")
	}

	key := func(doc map[string]any) (string, bool) {
		v, ok := doc[field]
		if !ok || v == nil {
			return "", false
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		raw, _ := json.Marshal(v)
		return string(raw), true
	}

	sort.SliceStable(docs, func(i, j int) bool {
		ki, oki := key(docs[i])
		kj, okj := key(docs[j])
		if desc {
			ki, oki, kj, okj = kj, okj, ki, oki
		}
		if oki != okj {
			return !oki
		}
		return ki < kj
	})
}
