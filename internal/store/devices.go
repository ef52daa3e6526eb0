package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrLimitExceeded is returned by UpsertDevice when the owning user
// has already reached their devices_limit (spec §7, LIMIT_EXCEEDED),
// grounded on core/auth.py's save_device limit check.
var ErrLimitExceeded = errors.New("store: device limit exceeded")

func scanDevice(row interface {
	Scan(dest ...any) error
}) (Device, error) {
	var (
		d        Device
		cloud    int
		added    sql.NullTime
		lastSeen sql.NullTime
	)

	err := row.Scan(&d.DeviceID, &d.UserID, &d.DeviceToken, &cloud, &added, &lastSeen, &d.PollCount, &d.LastRequestCounter)
	if err != nil {
		return Device{}, err
	}

	d.Cloud = cloud != 0
	if added.Valid {
		d.Added = added.Time
	}
	if lastSeen.Valid {
		d.LastSeen = lastSeen.Time
	}

	return d, nil
}

const deviceColumns = `device_id, user_id, device_token, cloud, added, last_seen, poll_count, last_request_counter`

// DeviceByID fetches a device regardless of owner.
func (s *Store) DeviceByID(ctx context.Context, deviceID string) (Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	return d, err
}

// DeviceByIDForUser fetches a device, enforcing ownership; used to
// implement §4.2's "target device exists and belongs to the
// authenticated user" validation step.
func (s *Store) DeviceByIDForUser(ctx context.Context, deviceID string, userID int64) (Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ? AND user_id = ?`, deviceID, userID)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	return d, err
}

// UpsertDevice registers or updates a device for a user, enforcing
// devices_limit on first registration. Grounded on core/auth.py's
// save_device.
func (s *Store) UpsertDevice(ctx context.Context, userID int64, deviceID, deviceToken string, now time.Time) (Device, error) {
	existing, err := s.DeviceByIDForUser(ctx, deviceID, userID)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE devices SET device_token = ?, cloud = 1, last_seen = ? WHERE device_id = ?`,
			deviceToken, now, deviceID)
		if err != nil {
			return Device{}, err
		}
		existing.DeviceToken = deviceToken
		existing.LastSeen = now
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Device{}, err
	}

	var (
		count int
		limit int
	)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return Device{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT devices_limit FROM users WHERE id = ?`, userID).Scan(&limit); err != nil {
		return Device{}, err
	}
	if count >= limit {
		return Device{}, ErrLimitExceeded
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, user_id, device_token, cloud, added, last_seen, poll_count, last_request_counter)
		VALUES (?, ?, ?, 1, ?, ?, 0, 0)`,
		deviceID, userID, deviceToken, now, now)
	if err != nil {
		return Device{}, err
	}

	return Device{
		DeviceID:    deviceID,
		UserID:      userID,
		DeviceToken: deviceToken,
		Cloud:       true,
		Added:       now,
		LastSeen:    now,
	}, nil
}

// DeleteDevice removes a device owned by userID and cascades deletion
// of its queued envelopes, grounded on core/auth.py's delete_device.
// Returns ErrNotFound if the device doesn't exist or isn't owned by userID.
func (s *Store) DeleteDevice(ctx context.Context, userID int64, deviceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ? AND user_id = ?`, deviceID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE device_id = ?`, deviceID); err != nil {
		return err
	}

	return tx.Commit()
}

// TouchDevice updates last_seen and, if counter is non-nil and not
// lower than the stored value, raises last_request_counter. A lower
// counter is silently ignored per spec §4.2 (re-deliveries are
// legitimate, not an error).
func (s *Store) TouchDevice(ctx context.Context, deviceID string, now time.Time, counter *int64) error {
	if counter == nil {
		_, err := s.db.ExecContext(ctx, `UPDATE devices SET last_seen = ? WHERE device_id = ?`, now, deviceID)
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE devices SET last_seen = ?,
			last_request_counter = CASE WHEN ? >= last_request_counter THEN ? ELSE last_request_counter END
		WHERE device_id = ?`, now, *counter, *counter, deviceID)
	return err
}

// IncrementPollCount bumps poll_count; called only when a pull
// returns a non-empty result, per spec §4.3 ("heartbeat polls do not
// count").
func (s *Store) IncrementPollCount(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE devices SET poll_count = poll_count + 1 WHERE device_id = ?`, deviceID)
	return err
}

// DevicesForUser lists all devices owned by userID.
func (s *Store) DevicesForUser(ctx context.Context, userID int64) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE user_id = ? ORDER BY device_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
