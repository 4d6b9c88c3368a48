package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/xraph/queuectl/store"
	bunstore "github.com/xraph/queuectl/store/bun"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// BusyTimeoutMillis is how long a connection waits for a lock held by
// another process.
const BusyTimeoutMillis = 5000

// Store is a bunstore.Store over a SQLite file it owns.
type Store struct {
	*bunstore.Store

	db *bun.DB
}

// Open opens (creating if needed) the SQLite database at path. The
// special path ":memory:" opens a private in-memory database on a single
// connection.
func Open(path string, opts ...bunstore.Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("queuectl/sqlite: empty database path")
	}

	sqldb, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("queuectl/sqlite: open %s: %w", path, err)
	}
	if path == ":memory:" {
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{
		Store: bunstore.New(db, opts...),
		db:    db,
	}, nil
}

// DSN builds the driver connection string for path.
func DSN(path string) string {
	if path == ":memory:" {
		return fmt.Sprintf("file::memory:?_busy_timeout=%d", BusyTimeoutMillis)
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", path, BusyTimeoutMillis)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
