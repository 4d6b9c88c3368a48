// Package store defines the aggregate persistence interface.
//
// Each subsystem (job, dlq, config) defines its own store interface. The
// composite [Store] composes them all. A single backend need only implement
// Store to satisfy every subsystem's persistence contract:
//
//	type Store interface {
//	    job.Store
//	    dlq.Store
//	    config.Store
//
//	    Migrate(ctx context.Context) error
//	    Ping(ctx context.Context) error
//	    Close() error
//	}
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/bun: Bun ORM backend over SQLite or PostgreSQL
//   - store/sqlite: opens a SQLite file and serves it through store/bun
//   - store/postgres: PostgreSQL backend using pgx/v5
//   - store/redis: Redis backend using hashes, sorted sets and Lua
//
// The queuectl command picks a backend from the scheme of its --db DSN
// (sqlite://, postgres://, redis://, memory://).
//
// # Claim contract
//
// Every backend claims in two phases: select the first eligible candidate
// by (priority, created_at), then update it only if it is still pending.
// A lost race reports no job rather than retrying, so a claim attempt is
// bounded. The store/storetest package verifies this on every backend.
//
// # Migrations
//
// Call Migrate once at startup to create or update the schema. The engine
// does this in engine.Build.
package store
