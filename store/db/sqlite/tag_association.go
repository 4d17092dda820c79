package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/circle/store"
)

func (d *DB) AttachTag(ctx context.Context, create *store.TagAssociation) (bool, error) {
	var attached bool
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireTag(ctx, tx, create.TagID); err != nil {
			return err
		}
		if err := requireOwner(ctx, tx, create.Role.OwnerKind(), create.OwnerID); err != nil {
			return err
		}
		ok, err := attachTx(ctx, tx, create.TagID, create.OwnerID, create.Role)
		attached = ok
		return err
	})
	if err != nil {
		return false, err
	}
	return attached, nil
}

func (d *DB) DetachTag(ctx context.Context, delete *store.TagAssociation) (bool, error) {
	var detached bool
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := detachTx(ctx, tx, delete.TagID, delete.OwnerID, delete.Role)
		detached = ok
		return err
	})
	if err != nil {
		return false, err
	}
	return detached, nil
}

func (d *DB) ReplaceTagSet(ctx context.Context, replace *store.ReplaceTagSet) (*store.TagSetDiff, error) {
	diff := &store.TagSetDiff{}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwner(ctx, tx, replace.Role.OwnerKind(), replace.OwnerID); err != nil {
			return err
		}
		wanted := dedupeIDs(replace.TagIDs)
		for _, tagID := range wanted {
			if err := requireTag(ctx, tx, tagID); err != nil {
				return err
			}
		}

		current, err := listOwnerTagIDs(ctx, tx, replace.OwnerID, []store.TagRole{replace.Role})
		if err != nil {
			return err
		}
		wantedSet := make(map[int32]bool, len(wanted))
		for _, id := range wanted {
			wantedSet[id] = true
		}
		currentSet := make(map[int32]bool, len(current))
		for _, id := range current {
			currentSet[id] = true
			if !wantedSet[id] {
				if _, err := detachTx(ctx, tx, id, replace.OwnerID, replace.Role); err != nil {
					return err
				}
				diff.Detached = append(diff.Detached, id)
			}
		}
		for _, id := range wanted {
			if currentSet[id] {
				continue
			}
			if _, err := attachTx(ctx, tx, id, replace.OwnerID, replace.Role); err != nil {
				return err
			}
			diff.Attached = append(diff.Attached, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diff, nil
}

func (d *DB) DetachAllTags(ctx context.Context, delete *store.DetachAllTags) (int, error) {
	var count int
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		n, err := detachAllTx(ctx, tx, delete.OwnerID, delete.Kind, delete.Roles)
		count = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (d *DB) ListTagAssociations(ctx context.Context, find *store.FindTagAssociation) ([]*store.TagAssociation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.TagID; v != nil {
		where, args = append(where, "tag_association.tag_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "tag_association.owner_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.OwnerIDs) > 0 {
		var list string
		args, list = inList(args, find.OwnerIDs)
		where = append(where, "tag_association.owner_id IN ("+list+")")
	}
	if len(find.Roles) > 0 {
		var list string
		args, list = inList(args, roleStrings(find.Roles))
		where = append(where, "tag_association.role IN ("+list+")")
	}

	query := `SELECT tag_association.owner_id, tag_association.role, tag_association.created_ts, ` + tagColumns + `
		FROM tag_association
		JOIN tag ON tag.id = tag_association.tag_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY tag_association.owner_id ASC, tag_association.role ASC, tag.name ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag associations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TagAssociation, 0)
	for rows.Next() {
		assoc := &store.TagAssociation{}
		var ownerID int32
		var role store.TagRole
		var createdTs int64
		row := &prefixScanner{rows: rows, prefix: []any{&ownerID, &role, &createdTs}}
		tag, err := scanTag(row)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag association: %w", err)
		}
		assoc.TagID = tag.ID
		assoc.OwnerID = ownerID
		assoc.Role = role
		assoc.CreatedTs = createdTs
		assoc.Tag = tag
		list = append(list, assoc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag associations: %w", err)
	}
	return list, nil
}

// prefixScanner scans leading columns before handing the rest to scanTag.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p *prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(p.prefix, dest...)...)
}

// attachTx inserts the association and bumps the usage count when the row is new.
func attachTx(ctx context.Context, tx *sql.Tx, tagID, ownerID int32, role store.TagRole) (bool, error) {
	stmt := `INSERT INTO tag_association (tag_id, owner_id, role, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (tag_id, owner_id, role) DO NOTHING`
	result, err := tx.ExecContext(ctx, stmt, tagID, ownerID, string(role), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert tag association: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE tag SET usage_count = usage_count + 1 WHERE id = "+placeholder(1), tagID); err != nil {
		return false, fmt.Errorf("failed to increment usage count: %w", err)
	}
	return true, nil
}

// detachTx deletes the association and decrements the usage count when a row was removed.
// A count already at zero means the ledger is out of balance; the caller's transaction must roll back.
func detachTx(ctx context.Context, tx *sql.Tx, tagID, ownerID int32, role store.TagRole) (bool, error) {
	stmt := `DELETE FROM tag_association WHERE tag_id = ` + placeholder(1) + ` AND owner_id = ` + placeholder(2) + ` AND role = ` + placeholder(3)
	result, err := tx.ExecContext(ctx, stmt, tagID, ownerID, string(role))
	if err != nil {
		return false, fmt.Errorf("failed to delete tag association: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	result, err = tx.ExecContext(ctx, "UPDATE tag SET usage_count = usage_count - 1 WHERE id = "+placeholder(1)+" AND usage_count > 0", tagID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement usage count: %w", err)
	}
	if affected, err = result.RowsAffected(); err != nil {
		return false, err
	}
	if affected == 0 {
		return false, errors.Wrapf(store.ErrUsageCountUnderflow, "tag %d", tagID)
	}
	return true, nil
}

// detachAllTx removes every association of the owner in roles, or in all of
// the kind's roles when roles is empty.
func detachAllTx(ctx context.Context, tx *sql.Tx, ownerID int32, kind store.OwnerKind, roles []store.TagRole) (int, error) {
	if len(roles) == 0 {
		roles = rolesOfKind(kind)
	}
	count := 0
	for _, role := range roles {
		tagIDs, err := listOwnerTagIDs(ctx, tx, ownerID, []store.TagRole{role})
		if err != nil {
			return 0, err
		}
		for _, tagID := range tagIDs {
			ok, err := detachTx(ctx, tx, tagID, ownerID, role)
			if err != nil {
				return 0, err
			}
			if ok {
				count++
			}
		}
	}
	return count, nil
}

func listOwnerTagIDs(ctx context.Context, tx *sql.Tx, ownerID int32, roles []store.TagRole) ([]int32, error) {
	args := []any{ownerID}
	args, list := inList(args, roleStrings(roles))
	query := `SELECT tag_id FROM tag_association WHERE owner_id = ` + placeholder(1) + ` AND role IN (` + list + `) ORDER BY tag_id`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner tag ids: %w", err)
	}
	defer rows.Close()

	ids := []int32{}
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag ids: %w", err)
	}
	return ids, nil
}

func requireTag(ctx context.Context, q queryer, tagID int32) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM tag WHERE id = "+placeholder(1), tagID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(store.ErrTagNotFound, "tag %d", tagID)
	}
	if err != nil {
		return fmt.Errorf("failed to check tag: %w", err)
	}
	return nil
}

func requireOwner(ctx context.Context, q queryer, kind store.OwnerKind, ownerID int32) error {
	table, err := ownerTable(kind)
	if err != nil {
		return err
	}
	var one int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = "+placeholder(1), ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(store.ErrOwnerNotFound, "%s %d", kind, ownerID)
	}
	if err != nil {
		return fmt.Errorf("failed to check owner: %w", err)
	}
	return nil
}

func ownerTable(kind store.OwnerKind) (string, error) {
	switch kind {
	case store.OwnerKindMember:
		return "member", nil
	case store.OwnerKindCatalogItem:
		return "catalog_item", nil
	default:
		return "", errors.Errorf("unknown owner kind %q", kind)
	}
}

func rolesOfKind(kind store.OwnerKind) []store.TagRole {
	if kind == store.OwnerKindCatalogItem {
		return []store.TagRole{store.TagRoleCatalog}
	}
	return store.MemberTagRoles
}

func dedupeIDs(ids []int32) []int32 {
	seen := make(map[int32]bool, len(ids))
	result := make([]int32, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
