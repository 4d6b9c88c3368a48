package bunstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/xraph/queuectl/store"
)

//go:embed migrations/sqlite/*.sql migrations/pg/*.sql
var migrationsFS embed.FS

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store with bun on SQLite or PostgreSQL. Queries
// are written once against bun's query builder; only the migrations and
// the duplicate-key check are dialect specific. The caller owns the
// *bun.DB and Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Bun store. The caller owns the db lifecycle. The Store
// will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB.
func (s *Store) DB() *bun.DB {
	return s.db
}

// migrationModel records one applied migration file.
type migrationModel struct {
	bun.BaseModel `bun:"table:queuectl_migrations"`

	Filename  string    `bun:"filename,pk"`
	AppliedAt time.Time `bun:"applied_at,notnull"`
}

// pgMigrationLock is the advisory lock key held while migrating Postgres.
const pgMigrationLock int64 = 0x71756575

// migrationFiles lists the embedded migrations for the db dialect in
// filename order.
func (s *Store) migrationFiles() ([]string, error) {
	var dir string
	switch name := s.db.Dialect().Name(); name {
	case dialect.SQLite:
		dir = "migrations/sqlite"
	case dialect.PG:
		dir = "migrations/pg"
	default:
		return nil, fmt.Errorf("queuectl/bun: unsupported dialect %s", name)
	}

	files, err := fs.Glob(migrationsFS, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("queuectl/bun: read migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies the dialect's embedded migrations that are not yet in
// queuectl_migrations, all in one transaction. On Postgres the transaction
// also holds an advisory lock so concurrent processes serialize.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := s.migrationFiles()
	if err != nil {
		return err
	}

	var applied []string
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if s.db.Dialect().Name() == dialect.PG {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", pgMigrationLock); err != nil {
				return fmt.Errorf("lock migrations: %w", err)
			}
		}
		if _, err := tx.NewCreateTable().Model((*migrationModel)(nil)).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create migrations table: %w", err)
		}

		for _, file := range files {
			name := path.Base(file)

			res, err := tx.NewInsert().
				Model(&migrationModel{Filename: name, AppliedAt: time.Now().UTC()}).
				On("CONFLICT DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}

			ddl, err := fs.ReadFile(migrationsFS, file)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
				return fmt.Errorf("execute migration %s: %w", name, err)
			}
			applied = append(applied, name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("queuectl/bun: %w", err)
	}

	for _, name := range applied {
		s.logger.Info("applied migration",
			slog.String("file", name),
			slog.String("dialect", s.db.Dialect().Name().String()),
		)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
