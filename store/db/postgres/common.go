package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/circle/store"
)

// maxTxAttempts bounds retries of serialization failures.
const maxTxAttempts = 3

// placeholder returns a placeholder for PostgreSQL (uses $n)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns $1..$n
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

// likeArg escapes LIKE wildcards. Backslash is the default escape character.
func likeArg(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// containsExpr matches column against a likeArg pattern case-insensitively.
func containsExpr(column string, n int) string {
	return column + " ILIKE " + placeholder(n)
}

// withTx runs fn in a read-committed transaction.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return d.withTxOptions(ctx, nil, fn)
}

// withSerializableTx runs fn at serializable isolation, retrying when
// PostgreSQL aborts the transaction with a serialization failure or deadlock.
func (d *DB) withSerializableTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = d.withTxOptions(ctx, opts, fn)
		if !isRetryable(err) {
			return err
		}
		slog.Warn("retrying serializable transaction", slog.Int("attempt", attempt), slog.String("error", err.Error()))
	}
	return errors.Wrapf(err, "transaction failed after %d attempts", maxTxAttempts)
}

func (d *DB) withTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isRetryable reports serialization_failure (40001) and deadlock_detected (40P01).
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
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
