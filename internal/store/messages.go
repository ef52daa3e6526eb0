package store

import (
	"context"
	"time"
)

// InsertMessage appends an envelope to the durable queue for
// (device_id, direction). Grounded on routes/api.py's push_message
// and routes/wss.py's per-frame persistence fallback.
func (s *Store) InsertMessage(ctx context.Context, m Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (device_token, device_id, message_type, message_data, signature, direction, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		nullableString(m.DeviceToken), m.DeviceID, m.MessageType, m.MessageData, m.Signature, m.Direction)
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// MessagesFor reads all queued envelopes for (deviceID, direction) in
// ascending timestamp (FIFO) order, per spec §4.3.
func (s *Store) MessagesFor(ctx context.Context, deviceID, direction string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(device_token, ''), device_id, message_type, message_data, COALESCE(signature, ''), direction, timestamp
		FROM messages WHERE device_id = ? AND direction = ? ORDER BY timestamp ASC, id ASC`, deviceID, direction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DeviceToken, &m.DeviceID, &m.MessageType, &m.MessageData, &m.Signature, &m.Direction, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

// DeleteMessages removes the given rows by id, used after a
// successful pull (§4.3: "pull is destructive").
func (s *Store) DeleteMessages(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM messages WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteOlderThan removes every envelope whose timestamp is before
// cutoff, and returns the count deleted. Used by the retention
// sweeper (§4.5); runs as its own transaction so it never contends
// with an in-flight pull's delete.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats is the aggregate counters reported by GET /api/stats.
type Stats struct {
	OnlineDevices   int
	TotalDevices    int
	TotalUsers      int
	QueuesToDevice  int
	QueuesToClient  int
}

// LoadStats computes the DB-backed half of Stats; the relay layer
// fills in the connection-count fields that only it knows about.
func (s *Store) LoadStats(ctx context.Context, onlineSince time.Time) (Stats, error) {
	var st Stats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE last_seen >= ?`, onlineSince).Scan(&st.OnlineDevices); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&st.TotalDevices); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&st.TotalUsers); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE direction = 'to_device'`).Scan(&st.QueuesToDevice); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE direction = 'to_client'`).Scan(&st.QueuesToClient); err != nil {
		return Stats{}, err
	}

	return st, nil
}
