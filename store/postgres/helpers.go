package postgres

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isDuplicateKey checks if a PostgreSQL error is a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// nullString maps the empty string to NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// pageClause renders LIMIT/OFFSET placeholders starting at argument n.
func pageClause(limit, offset, n int) (string, []any) {
	var (
		clause string
		args   []any
	)
	if limit > 0 {
		clause += " LIMIT $" + strconv.Itoa(n)
		args = append(args, limit)
		n++
	}
	if offset > 0 {
		clause += " OFFSET $" + strconv.Itoa(n)
		args = append(args, offset)
	}
	return clause, args
}
