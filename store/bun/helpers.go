package bunstore

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey reports a PostgreSQL unique_violation (23505) or a SQLite
// constraint failure.
func isDuplicateKey(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// page applies limit and offset. SQLite rejects OFFSET without LIMIT, so
// an unbounded page there uses LIMIT -1.
func (s *Store) page(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	switch {
	case limit > 0:
		q = q.Limit(limit)
	case offset > 0 && s.db.Dialect().Name() == dialect.SQLite:
		q = q.Limit(-1)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
