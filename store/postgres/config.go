package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetConfig returns every persisted setting.
func (s *Store) GetConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT "key", value FROM queuectl_config`)
	if err != nil {
		return nil, fmt.Errorf("queuectl/postgres: get config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("queuectl/postgres: scan config row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queuectl/postgres: iterate config rows: %w", err)
	}
	return out, nil
}

// SetConfig inserts or overwrites a setting.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queuectl_config ("key", value) VALUES ($1, $2)
		ON CONFLICT ("key") DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("queuectl/postgres: set config %s: %w", key, err)
	}
	return nil
}

// SeedConfig inserts each setting whose key is absent.
func (s *Store) SeedConfig(ctx context.Context, defaults map[string]string) error {
	batch := &pgx.Batch{}
	for k, v := range defaults {
		batch.Queue(`
			INSERT INTO queuectl_config ("key", value) VALUES ($1, $2)
			ON CONFLICT ("key") DO NOTHING`,
			k, v,
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("queuectl/postgres: seed config: %w", err)
	}
	return nil
}
