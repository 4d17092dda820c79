package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/circle/store"
)

const (
	tagColumns = "tag.id, tag.name, tag.category, tag.level, tag.parent_id, tag.ai_category, tag.ai_confidence, tag.usage_count, tag.created_ts, tag.updated_ts"
	// tagReturning lists the same columns unqualified for RETURNING clauses.
	tagReturning = "id, name, category, level, parent_id, ai_category, ai_confidence, usage_count, created_ts, updated_ts"
)

func (d *DB) CreateTagIfNotExists(ctx context.Context, upsert *store.UpsertTag) (*store.Tag, error) {
	now := time.Now().Unix()
	fields := []string{"name", "category", "level", "parent_id", "ai_category", "ai_confidence", "created_ts", "updated_ts"}
	args := []any{upsert.Name, string(upsert.Category), upsert.Level, nullableID(upsert.ParentID), upsert.AICategory, upsert.AIConfidence, now, now}

	stmt := `INSERT INTO tag (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (name) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	tag, err := getTagByName(ctx, d.db, upsert.Name)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (d *DB) UpsertTagClassification(ctx context.Context, upsert *store.UpsertTag) (*store.Tag, error) {
	now := time.Now().Unix()
	fields := []string{"name", "category", "level", "parent_id", "ai_category", "ai_confidence", "created_ts", "updated_ts"}
	args := []any{upsert.Name, string(upsert.Category), upsert.Level, nullableID(upsert.ParentID), upsert.AICategory, upsert.AIConfidence, now, now}

	stmt := `INSERT INTO tag (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (name) DO UPDATE SET
			ai_category = excluded.ai_category,
			ai_confidence = excluded.ai_confidence,
			updated_ts = excluded.updated_ts
		RETURNING ` + tagReturning

	tag, err := scanTag(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tag classification: %w", err)
	}
	return tag, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "tag.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDs) > 0 {
		var list string
		args, list = inList(args, find.IDs)
		where = append(where, "tag.id IN ("+list+")")
	}
	if v := find.Name; v != nil {
		where, args = append(where, "tag.name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.Names) > 0 {
		var list string
		args, list = inList(args, find.Names)
		where = append(where, "tag.name IN ("+list+")")
	}
	if v := find.ParentID; v != nil {
		where, args = append(where, "tag.parent_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.NameContains; v != nil && *v != "" {
		where, args = append(where, containsExpr("tag.name", len(args)+1)), append(args, likeArg(*v))
	}

	orderBy := "tag.created_ts DESC, tag.name ASC"
	if find.OrderByUsage {
		orderBy = "tag.usage_count DESC, tag.name ASC"
	} else if find.OrderByName {
		orderBy = "tag.name ASC"
	}

	query := `SELECT ` + tagColumns + ` FROM tag WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		list = append(list, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return list, nil
}

func getTagByName(ctx context.Context, q queryer, name string) (*store.Tag, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tag WHERE tag.name = `+placeholder(1), name)
	tag, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %q: %w", name, err)
	}
	return tag, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTag(s scanner, extra ...any) (*store.Tag, error) {
	tag := &store.Tag{}
	var parentID sql.NullInt32
	dest := append([]any{
		&tag.ID,
		&tag.Name,
		&tag.Category,
		&tag.Level,
		&parentID,
		&tag.AICategory,
		&tag.AIConfidence,
		&tag.UsageCount,
		&tag.CreatedTs,
		&tag.UpdatedTs,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if parentID.Valid {
		tag.ParentID = &parentID.Int32
	}
	return tag, nil
}
