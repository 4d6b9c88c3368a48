package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/queuectl"
)

// Service validates and serves settings over a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a settings service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// AllowedKeys returns the allowed keys in sorted order.
func AllowedKeys() []string {
	return slices.Sorted(maps.Keys(Defaults()))
}

// Init seeds the defaults for any key that is not yet persisted.
func (s *Service) Init(ctx context.Context) error {
	if err := s.store.SeedConfig(ctx, Defaults()); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	return nil
}

// Get returns the full persisted map.
func (s *Service) Get(ctx context.Context) (map[string]string, error) {
	return s.store.GetConfig(ctx)
}

// Set validates key and value and upserts them. Unknown keys fail with
// ErrInvalidConfigKey listing the allowed keys.
func (s *Service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if _, ok := Defaults()[key]; !ok {
		return fmt.Errorf("%w: %q. Allowed keys: %s",
			queuectl.ErrInvalidConfigKey, key, strings.Join(AllowedKeys(), ", "))
	}

	value = strings.TrimSpace(value)
	if err := validateValue(key, value); err != nil {
		return err
	}

	return s.store.SetConfig(ctx, key, value)
}

// Settings loads the typed settings. A malformed or missing value falls
// back to its default and is logged. A store failure returns the
// defaults together with the error.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	out := DefaultSettings()

	raw, err := s.store.GetConfig(ctx)
	if err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}

	if n, ok := s.intValue(raw, KeyBackoffBase); ok {
		out.BackoffBase = n
	}
	if n, ok := s.intValue(raw, KeyMaxRetriesDefault); ok {
		out.MaxRetriesDefault = n
	}
	if n, ok := s.intValue(raw, KeyTimeoutSeconds); ok {
		out.Timeout = time.Duration(n) * time.Second
	}
	return out, nil
}

func (s *Service) intValue(raw map[string]string, key string) (int, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	if err := validateValue(key, v); err != nil {
		s.logger.Warn("ignoring invalid setting",
			slog.String("key", key),
			slog.String("value", v),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	n, _ := strconv.Atoi(v) //nolint:errcheck // validated above
	return n, true
}

func validateValue(key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer, got %q", queuectl.ErrValidation, key, value)
	}

	minimum := 1
	if key == KeyMaxRetriesDefault {
		minimum = 0
	}
	if n < minimum {
		return fmt.Errorf("%w: %s must be >= %d, got %d", queuectl.ErrValidation, key, minimum, n)
	}
	if key == KeyTimeoutSeconds && int64(n) > MaxTimeoutSeconds {
		return fmt.Errorf("%w: %s must be <= %d, got %d", queuectl.ErrValidation, key, MaxTimeoutSeconds, n)
	}
	return nil
}
