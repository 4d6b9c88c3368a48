// Package config manages the persisted queue settings: the backoff base,
// the default retry budget, and the execution timeout.
//
// Settings are a small string key/value table restricted to a fixed set
// of keys. Defaults are seeded once when the store is initialized and are
// never overwritten by seeding afterwards.
package config

import (
	"context"
	"math"
	"time"
)

// Allowed setting keys.
const (
	KeyBackoffBase       = "backoff_base"
	KeyMaxRetriesDefault = "max_retries_default"
	KeyTimeoutSeconds    = "timeout_seconds"
)

// MaxTimeoutSeconds is the largest timeout_seconds that fits a time.Duration.
const MaxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

// Defaults returns the seed values for every allowed key.
func Defaults() map[string]string {
	return map[string]string{
		KeyBackoffBase:       "2",
		KeyMaxRetriesDefault: "3",
		KeyTimeoutSeconds:    "20",
	}
}

// Settings is the typed view of the persisted configuration.
type Settings struct {
	BackoffBase       int
	MaxRetriesDefault int
	Timeout           time.Duration
}

// DefaultSettings returns the typed defaults.
func DefaultSettings() Settings {
	return Settings{
		BackoffBase:       2,
		MaxRetriesDefault: 3,
		Timeout:           20 * time.Second,
	}
}

// Store defines the persistence contract for settings.
type Store interface {
	// GetConfig returns every persisted key/value pair.
	GetConfig(ctx context.Context) (map[string]string, error)

	// SetConfig inserts or overwrites a single key.
	SetConfig(ctx context.Context, key, value string) error

	// SeedConfig inserts each pair whose key is absent. Existing values
	// are left untouched.
	SeedConfig(ctx context.Context, defaults map[string]string) error
}
