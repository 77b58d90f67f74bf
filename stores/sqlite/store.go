package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"whiteboard-server/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database and its kv table.
func NewStore(dataSourceName string) (core.KeyValueStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	kvTableStmt := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err = db.Exec(kvTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, error) {
	log := logrus.WithField("key", key)

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Key not found")
			return "", fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve value")
		return "", err
	}

	log.WithField("data_length", len(value)).Debug("Value retrieved successfully")
	return value, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(value),
	})

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Debug("Value stored successfully")
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
