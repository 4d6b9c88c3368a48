// Package store defines the aggregate persistence interface. Each subsystem
// (job, dlq, config) defines its own store interface and the composite
// Store composes them all. Backends: Memory, Bun (SQLite or Postgres),
// SQLite, Postgres and Redis.
package store

import (
	"context"

	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
)

// Store is the aggregate persistence interface.
// A single backend implements every subsystem store.
type Store interface {
	job.Store
	dlq.Store
	config.Store

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}
