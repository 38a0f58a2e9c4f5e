package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/CoachHub/internal/core"
)

// recordExpr flattens a row into the JSON shape the platform returns:
// the document plus its metadata columns.
const recordExpr = `data || jsonb_build_object('id', id, 'created_by', created_by, 'created_date', created_date, 'updated_date', updated_date)`

// metadata keys live in columns, never inside data
var metaColumns = map[string]string{
	"id":           "id",
	"created_by":   "created_by",
	"created_date": "created_date",
	"updated_date": "updated_date",
}

var _ core.Collection[struct{}] = (*Collection[struct{}])(nil)

// Collection stores one entity type as JSONB documents in the entities table.
type Collection[T any] struct {
	db         *sql.DB
	entityType string
}

func NewCollection[T any](db *sql.DB, entityType string) *Collection[T] {
	return &Collection[T]{db: db, entityType: entityType}
}

func (c *Collection[T]) List(ctx context.Context, sort string, limit int) ([]T, error) {
	return c.Filter(ctx, nil, sort, limit)
}

// Filter returns records whose fields equal every value in query.
func (c *Collection[T]) Filter(ctx context.Context, query map[string]any, sort string, limit int) ([]T, error) {
	q, args, err := buildSelect(c.entityType, query, sort, limit)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.entityType, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.entityType, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	q := `SELECT ` + recordExpr + ` FROM entities WHERE entity_type = $1 AND id = $2`
	return c.one(ctx, q, c.entityType, id)
}

// Create inserts v. The id is taken from v when present, otherwise generated.
func (c *Collection[T]) Create(ctx context.Context, createdBy string, v T) (T, error) {
	var zero T
	doc, err := toDocument(v)
	if err != nil {
		return zero, err
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	stripMeta(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", c.entityType, err)
	}

	q := `
		INSERT INTO entities (entity_type, id, data, created_by)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING ` + recordExpr
	return c.one(ctx, q, c.entityType, id, string(data), createdBy)
}

// Update merges patch into the stored document. Metadata keys are ignored.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	doc := make(map[string]any, len(patch))
	for k, v := range patch {
		doc[k] = v
	}
	stripMeta(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("encode %s patch: %w", c.entityType, err)
	}

	q := `
		UPDATE entities
		SET data = data || $3::jsonb, updated_date = now()
		WHERE entity_type = $1 AND id = $2
		RETURNING ` + recordExpr
	return c.one(ctx, q, c.entityType, id, string(data))
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM entities WHERE entity_type = $1 AND id = $2`, c.entityType, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.entityType, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c.entityType, id, core.ErrNotFound)
	}
	return nil
}

func (c *Collection[T]) one(ctx context.Context, q string, args ...any) (T, error) {
	var zero T
	var raw []byte
	err := c.db.QueryRowContext(ctx, q, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s: %w", c.entityType, core.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("%s: %w", c.entityType, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", c.entityType, err)
	}
	return v, nil
}

func toDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return doc, nil
}

func stripMeta(doc map[string]any) {
	for k := range metaColumns {
		delete(doc, k)
	}
}

// buildSelect renders the filter/sort/limit query for one entity type.
// Metadata keys compare against their columns; everything else goes into
// a single JSONB containment test.
func buildSelect(entityType string, query map[string]any, sort string, limit int) (string, []any, error) {
	var sb strings.Builder
	args := []any{entityType}
	sb.WriteString(`SELECT ` + recordExpr + ` FROM entities WHERE entity_type = $1`)

	contains := map[string]any{}
	for _, k := range slices.Sorted(maps.Keys(query)) {
		v := query[k]
		if col, ok := metaColumns[k]; ok {
			args = append(args, v)
			fmt.Fprintf(&sb, " AND %s = $%d", col, len(args))
			continue
		}
		contains[k] = v
	}
	if len(contains) > 0 {
		data, err := json.Marshal(contains)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, string(data))
		fmt.Fprintf(&sb, " AND data @> $%d::jsonb", len(args))
	}

	field, desc := ParseSort(sort)
	dir, nulls := "ASC", "NULLS FIRST"
	if desc {
		dir, nulls = "DESC", "NULLS LAST"
	}
	if col, ok := metaColumns[field]; ok {
		fmt.Fprintf(&sb, " ORDER BY %s %s", col, dir)
	} else {
		args = append(args, field)
		fmt.Fprintf(&sb, " ORDER BY data->>$%d::text %s %s, created_date %s", len(args), dir, nulls, dir)
	}

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

// ParseSort splits a platform sort string. An empty sort means newest first.
func ParseSort(sort string) (field string, desc bool) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return "created_date", true
	}
	if strings.HasPrefix(sort, "-") {
		return strings.TrimPrefix(sort, "-"), true
	}
	return strings.TrimPrefix(sort, "+"), false
}
