package queuectl

import "time"

// Config holds runtime configuration for the worker engine. Persisted
// queue settings (backoff base, retry default, timeout) live in the
// config package.
type Config struct {
	// Concurrency is the number of worker loops started by RunWorkers when
	// no explicit count is given.
	Concurrency int

	// PollInterval is how long an idle worker sleeps before claiming again.
	PollInterval time.Duration

	// ErrorPause is how long a worker pauses after an unexpected fault.
	ErrorPause time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:  1,
		PollInterval: 500 * time.Millisecond,
		ErrorPause:   1 * time.Second,
	}
}
