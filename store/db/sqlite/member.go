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

const (
	memberColumns   = "member.id, member.uid, member.name, member.bio, member.specialties, member.needs, member.created_ts, member.updated_ts"
	memberReturning = "id, uid, name, bio, specialties, needs, created_ts, updated_ts"
)

func (d *DB) CreateMember(ctx context.Context, create *store.Member) (*store.Member, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	fields := []string{"uid", "name", "bio", "specialties", "needs", "created_ts", "updated_ts"}
	args := []any{create.UID, create.Name, create.Bio, create.Specialties, create.Needs, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO member (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return create, nil
}

func (d *DB) UpdateMember(ctx context.Context, update *store.UpdateMember) (*store.Member, error) {
	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Name; v != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Bio; v != nil {
		set, args = append(set, "bio = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Specialties; v != nil {
		set, args = append(set, "specialties = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Needs; v != nil {
		set, args = append(set, "needs = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE member SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + memberReturning
	member, err := scanMember(d.db.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrOwnerNotFound, "member %d", update.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

func (d *DB) ListMembers(ctx context.Context, find *store.FindMember) ([]*store.Member, error) {
	where, args := []string{"1 = 1"}, []any{}
	memberRoles := `tag_association.role IN ('skill', 'need')`

	if v := find.ID; v != nil {
		where, args = append(where, "member.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDs) > 0 {
		var list string
		args, list = inList(args, find.IDs)
		where = append(where, "member.id IN ("+list+")")
	}
	if v := find.UID; v != nil {
		where, args = append(where, "member.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Query; v != nil && strings.TrimSpace(*v) != "" {
		pattern := likeArg(strings.TrimSpace(*v))
		args = append(args, pattern, pattern, pattern)
		n := len(args)
		where = append(where, `(`+containsExpr("member.name", n-2)+` OR `+containsExpr("member.bio", n-1)+` OR EXISTS (
			SELECT 1 FROM tag_association JOIN tag ON tag.id = tag_association.tag_id
			WHERE tag_association.owner_id = member.id AND `+memberRoles+` AND `+containsExpr("tag.name", n)+`))`)
	}
	if len(find.TagIDs) > 0 {
		var list string
		args, list = inList(args, find.TagIDs)
		where = append(where, `EXISTS (
			SELECT 1 FROM tag_association
			WHERE tag_association.owner_id = member.id AND `+memberRoles+` AND tag_association.tag_id IN (`+list+`))`)
	}
	if len(find.TagNames) > 0 {
		var list string
		args, list = inList(args, find.TagNames)
		where = append(where, `EXISTS (
			SELECT 1 FROM tag_association JOIN tag ON tag.id = tag_association.tag_id
			WHERE tag_association.owner_id = member.id AND `+memberRoles+` AND tag.name IN (`+list+`))`)
	}

	query := `SELECT ` + memberColumns + ` FROM member WHERE ` + strings.Join(where, " AND ") + ` ORDER BY member.updated_ts DESC, member.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		list = append(list, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteMember(ctx context.Context, delete *store.DeleteMember) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwner(ctx, tx, store.OwnerKindMember, delete.ID); err != nil {
			return err
		}
		if _, err := detachAllTx(ctx, tx, delete.ID, store.OwnerKindMember, nil); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM member WHERE id = "+placeholder(1), delete.ID); err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return nil
	})
}

func scanMember(s scanner) (*store.Member, error) {
	member := &store.Member{}
	if err := s.Scan(
		&member.ID,
		&member.UID,
		&member.Name,
		&member.Bio,
		&member.Specialties,
		&member.Needs,
		&member.CreatedTs,
		&member.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return member, nil
}
