// Package postgres backs the key-value store with a single kv_entries table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"easymed-admin-backend/internal/kvstore"
	"easymed-admin-backend/internal/logger"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS kv_entries (
	            key        TEXT PRIMARY KEY,
	            value      BYTEA NOT NULL,
	            updated_on TIMESTAMPTZ NOT NULL
	          )`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1`
	logger.DatabaseCall("get", query, "key", key)

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv_entries (key, value, updated_on) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET value = $2, updated_on = $3`
	logger.DatabaseCall("set", query, "key", key)

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE key = $1`
	logger.DatabaseCall("delete", query, "key", key)

	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
