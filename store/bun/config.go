package bunstore

import (
	"context"
	"fmt"
)

// GetConfig returns every persisted setting.
func (s *Store) GetConfig(ctx context.Context) (map[string]string, error) {
	var models []configModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("queuectl/bun: get config: %w", err)
	}

	out := make(map[string]string, len(models))
	for _, m := range models {
		out[m.Key] = m.Value
	}
	return out, nil
}

// SetConfig inserts or overwrites a setting.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	m := &configModel{Key: key, Value: value}
	_, err := s.db.NewInsert().Model(m).
		On(`CONFLICT ("key") DO UPDATE`).
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("queuectl/bun: set config %s: %w", key, err)
	}
	return nil
}

// SeedConfig inserts each setting whose key is absent.
func (s *Store) SeedConfig(ctx context.Context, defaults map[string]string) error {
	if len(defaults) == 0 {
		return nil
	}

	models := make([]configModel, 0, len(defaults))
	for k, v := range defaults {
		models = append(models, configModel{Key: k, Value: v})
	}
	_, err := s.db.NewInsert().Model(&models).
		On(`CONFLICT ("key") DO NOTHING`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("queuectl/bun: seed config: %w", err)
	}
	return nil
}
