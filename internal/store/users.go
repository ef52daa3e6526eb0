package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists names a write that would violate a unique constraint.
// No function in this package returns it; CreateUser and UpsertDevice
// return the driver's constraint error as is.
var ErrAlreadyExists = errors.New("store: already exists")

// UserByAPIToken resolves a bearer token to its owning User, grounded
// on core/auth.py's validate_api_token.
func (s *Store) UserByAPIToken(ctx context.Context, token string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, api_token, plan, devices_limit, created_at
		FROM users WHERE api_token = ?`, token)

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.APIToken, &u.Plan, &u.DevicesLimit, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}

	return u, nil
}

// CreateUser inserts a new user row. Used by test fixtures and
// operator tooling; the interactive registration flow itself is an
// external collaborator per spec §1.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, api_token, plan, devices_limit, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		u.Username, u.PasswordHash, u.APIToken, u.Plan, u.DevicesLimit)
	if err != nil {
		return User{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	u.ID = id

	return s.UserByAPIToken(ctx, u.APIToken)
}
