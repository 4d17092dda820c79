package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hrygo/circle/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(n int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// inList appends values to args and returns the matching placeholder list.
func inList[T any](args []any, values []T) ([]any, string) {
	list := make([]string, 0, len(values))
	for _, v := range values {
		args = append(args, v)
		list = append(list, placeholder(len(args)))
	}
	return args, strings.Join(list, ", ")
}

// likeArg lowercases s and escapes LIKE wildcards for use with ESCAPE '\'.
func likeArg(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// containsExpr matches column against a likeArg pattern case-insensitively.
func containsExpr(column string, n int) string {
	return "lower(" + column + ") LIKE " + placeholder(n) + ` ESCAPE '\'`
}

// withTx runs fn in a transaction. The DSN sets _txlock=immediate, so the
// write lock is taken when the transaction begins.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullableID(id *int32) any {
	if id == nil {
		return nil
	}
	return *id
}

func roleStrings(roles []store.TagRole) []string {
	list := make([]string, 0, len(roles))
	for _, role := range roles {
		list = append(list, string(role))
	}
	return list
}
