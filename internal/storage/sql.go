package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS cache_kv (
	cache_key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLStore keeps cache entries in a single cache_kv table.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

type sqlQueries struct {
	get, upsert, remove string
}

var dialectQueries = map[string]sqlQueries{
	"sqlite": {
		get:    `SELECT value FROM cache_kv WHERE cache_key = ?`,
		upsert: `INSERT INTO cache_kv (cache_key, value) VALUES (?, ?) ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value`,
		remove: `DELETE FROM cache_kv WHERE cache_key = ?`,
	},
	"postgres": {
		get:    `SELECT value FROM cache_kv WHERE cache_key = $1`,
		upsert: `INSERT INTO cache_kv (cache_key, value) VALUES ($1, $2) ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value`,
		remove: `DELETE FROM cache_kv WHERE cache_key = $1`,
	},
}

// NewSQLStore wraps an open database and creates the table if needed.
// dialect is sqlite or postgres.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	if _, ok := dialectQueries[dialect]; !ok {
		return nil, fmt.Errorf("unsupported SQL dialect: %s", dialect)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

func openSQLite(ctx context.Context, config Config) (Backend, error) {
	path := config.DatabasePath
	if path == "" {
		return nil, fmt.Errorf("sqlite backend requires DATABASE_PATH")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)

	store, err := NewSQLStore(ctx, db, "sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func openPostgres(ctx context.Context, config Config) (Backend, error) {
	if config.PostgresURL == "" {
		return nil, fmt.Errorf("postgres backend requires POSTGRES_URL")
	}

	connConfig, err := pgx.ParseConfig(config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL connection string: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	store, err := NewSQLStore(ctx, db, "postgres")
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) queries() sqlQueries {
	return dialectQueries[s.dialect]
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.queries().get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.queries().upsert, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.queries().remove, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
