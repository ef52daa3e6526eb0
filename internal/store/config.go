package store

import (
	"context"
	"database/sql"
	"errors"
)

// GetConfig reads a single server_config value. Returns sql.ErrNoRows
// (not wrapped) when absent, so callers can distinguish "not set" from
// other failures without importing this package's ErrNotFound for a
// table that's a singleton lookup, not an entity lookup.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM server_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sql.ErrNoRows
	}
	return value, err
}

// SetConfig upserts a server_config value, grounded on core/utils.py's
// update_base_url.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_config (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}
