package redis

import (
	"context"
	"fmt"
)

// GetConfig returns every persisted setting.
func (s *Store) GetConfig(ctx context.Context) (map[string]string, error) {
	vals, err := s.client.HGetAll(ctx, configKey).Result()
	if err != nil {
		return nil, fmt.Errorf("queuectl/redis: get config: %w", err)
	}
	return vals, nil
}

// SetConfig inserts or overwrites a setting.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, configKey, key, value).Err(); err != nil {
		return fmt.Errorf("queuectl/redis: set config %s: %w", key, err)
	}
	return nil
}

// SeedConfig inserts each setting whose key is absent.
func (s *Store) SeedConfig(ctx context.Context, defaults map[string]string) error {
	pipe := s.client.Pipeline()
	for k, v := range defaults {
		pipe.HSetNX(ctx, configKey, k, v)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queuectl/redis: seed config: %w", err)
	}
	return nil
}
