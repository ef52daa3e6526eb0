package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store wraps a *sql.DB with the entity-store operations the relay
// needs. It is safe for concurrent use, matching database/sql's own
// concurrency contract; SQLite access is serialized by the driver.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates (if necessary) and migrates the SQLite file at path,
// mirroring core/database.py's init_db: create tables, then seed a
// default base_url if one isn't already present.
func Open(path string, logger *zap.Logger, defaultBaseURL string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows only one writer at a time; a single connection
	// avoids SQLITE_BUSY errors under concurrent goroutines without
	// adding an extra application-level lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	s := &Store{db: db, logger: logger}

	if err := s.seedBaseURL(context.Background(), defaultBaseURL); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) seedBaseURL(ctx context.Context, defaultBaseURL string) error {
	_, err := s.GetConfig(ctx, "base_url")
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	s.logger.Info("seeding default base_url", zap.String("base_url", defaultBaseURL))
	return s.SetConfig(ctx, "base_url", defaultBaseURL)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components that need direct
// query access.
func (s *Store) DB() *sql.DB {
	return s.db
}
