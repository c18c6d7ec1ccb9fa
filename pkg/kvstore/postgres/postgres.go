// Package postgres backs the key-value store with a single Postgres table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
)

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
}

type Store struct {
	db    *sqlx.DB
	table string
}

var _ kvstore.Store = (*Store)(nil)

func NewDB(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Open connects and makes sure the table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection.
func New(ctx context.Context, db *sqlx.DB, table string) (*Store, error) {
	if table == "" {
		table = "kv_store"
	}
	s := &Store{db: db, table: table}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	err := s.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
