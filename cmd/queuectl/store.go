package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/queuectl/store"
	bunstore "github.com/xraph/queuectl/store/bun"
	"github.com/xraph/queuectl/store/memory"
	"github.com/xraph/queuectl/store/postgres"
	redisstore "github.com/xraph/queuectl/store/redis"
	"github.com/xraph/queuectl/store/sqlite"
)

// Backend names a store implementation selected from a DSN.
type Backend string

const (
	BackendSQLite      Backend = "sqlite"
	BackendPostgres    Backend = "postgres"
	BackendBunPostgres Backend = "bun+postgres"
	BackendRedis       Backend = "redis"
	BackendMemory      Backend = "memory"
)

// parseDSN maps a --db value to a backend and the address handed to it.
//
//	queue.db, sqlite://queue.db      sqlite file
//	postgres://..., postgresql://... pgx pool
//	bun+postgres://...               bun over pgdriver
//	redis://..., rediss://...        go-redis
//	memory://                        in-process, not persisted
func parseDSN(dsn string) (Backend, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", fmt.Errorf("empty --db value")
	}

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return BackendSQLite, dsn, nil
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3", "file":
		if rest == "" {
			return "", "", fmt.Errorf("sqlite DSN %q has no path", dsn)
		}
		return BackendSQLite, rest, nil
	case "postgres", "postgresql":
		return BackendPostgres, dsn, nil
	case "bun+postgres", "bun+postgresql":
		return BackendBunPostgres, "postgres://" + rest, nil
	case "redis", "rediss":
		return BackendRedis, dsn, nil
	case "memory", "mem":
		return BackendMemory, "", nil
	default:
		return "", "", fmt.Errorf("unsupported store scheme %q", scheme)
	}
}

// openStore opens the backend named by dsn.
func openStore(ctx context.Context, dsn string, logger *slog.Logger) (store.Store, error) {
	backend, addr, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendSQLite:
		return sqlite.Open(addr, bunstore.WithLogger(logger))
	case BackendPostgres:
		return postgres.New(ctx, addr, postgres.WithLogger(logger))
	case BackendBunPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(addr)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return &bunPostgres{Store: bunstore.New(db, bunstore.WithLogger(logger)), db: db}, nil
	case BackendRedis:
		return redisstore.Open(addr, redisstore.WithLogger(logger))
	case BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported backend %q", backend)
}

// bunPostgres owns the *bun.DB it was opened with.
type bunPostgres struct {
	*bunstore.Store

	db *bun.DB
}

func (s *bunPostgres) Close() error { return s.db.Close() }
