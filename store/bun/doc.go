// Package bunstore implements store.Store using the Bun ORM. The same
// Store serves SQLite (sqlitedialect) and PostgreSQL (pgdialect); the
// migration set is chosen from the dialect of the *bun.DB.
//
// The caller owns the *bun.DB lifecycle. bunstore never closes it. Pass the
// db handle through the constructor:
//
//	import (
//	    "github.com/uptrace/bun"
//	    "github.com/uptrace/bun/dialect/pgdialect"
//	    "github.com/uptrace/bun/driver/pgdriver"
//	    bunstore "github.com/xraph/queuectl/store/bun"
//	)
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	store := bunstore.New(db)
//	store.Migrate(ctx)
//
// For a SQLite file use store/sqlite, which opens the database and wraps
// this package.
package bunstore
