package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/circle/store"
)

const catalogItemColumns = "catalog_item.id, catalog_item.uid, catalog_item.title, catalog_item.description, catalog_item.created_ts, catalog_item.updated_ts"

func (d *DB) CreateCatalogItem(ctx context.Context, create *store.CatalogItem) (*store.CatalogItem, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	fields := []string{"uid", "title", "description", "created_ts", "updated_ts"}
	args := []any{create.UID, create.Title, create.Description, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO catalog_item (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create catalog item: %w", err)
	}
	return create, nil
}

func (d *DB) ListCatalogItems(ctx context.Context, find *store.FindCatalogItem) ([]*store.CatalogItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "catalog_item.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDs) > 0 {
		var list string
		args, list = inList(args, find.IDs)
		where = append(where, "catalog_item.id IN ("+list+")")
	}
	if v := find.UID; v != nil {
		where, args = append(where, "catalog_item.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TagID; v != nil {
		where, args = append(where, `EXISTS (
			SELECT 1 FROM tag_association
			WHERE tag_association.owner_id = catalog_item.id AND tag_association.role = 'catalog' AND tag_association.tag_id = `+placeholder(len(args)+1)+`)`), append(args, *v)
	}
	if v := find.Query; v != nil && strings.TrimSpace(*v) != "" {
		pattern := likeArg(strings.TrimSpace(*v))
		args = append(args, pattern, pattern, pattern)
		n := len(args)
		where = append(where, `(`+containsExpr("catalog_item.title", n-2)+` OR `+containsExpr("catalog_item.description", n-1)+` OR EXISTS (
			SELECT 1 FROM tag_association JOIN tag ON tag.id = tag_association.tag_id
			WHERE tag_association.owner_id = catalog_item.id AND tag_association.role = 'catalog' AND `+containsExpr("tag.name", n)+`))`)
	}

	query := `SELECT ` + catalogItemColumns + ` FROM catalog_item WHERE ` + strings.Join(where, " AND ") + ` ORDER BY catalog_item.created_ts DESC, catalog_item.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CatalogItem, 0)
	for rows.Next() {
		item := &store.CatalogItem{}
		if err := rows.Scan(
			&item.ID,
			&item.UID,
			&item.Title,
			&item.Description,
			&item.CreatedTs,
			&item.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog items: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteCatalogItem(ctx context.Context, delete *store.DeleteCatalogItem) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwner(ctx, tx, store.OwnerKindCatalogItem, delete.ID); err != nil {
			return err
		}
		if _, err := detachAllTx(ctx, tx, delete.ID, store.OwnerKindCatalogItem, nil); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM catalog_item WHERE id = "+placeholder(1), delete.ID); err != nil {
			return fmt.Errorf("failed to delete catalog item: %w", err)
		}
		return nil
	})
}
