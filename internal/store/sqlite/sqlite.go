// Package sqlite is the on-disk Local Store: one kv table in a SQLite file
// next to the CLI's config.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	"github.com/sakif/brewlog/internal/store"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// compile-time check that *Store implements store.Store
var _ store.Store = (*Store)(nil)

type Store struct {
	conn *sql.DB
}

// New opens (or creates) the store at path and applies its migrations.
func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store/sqlite: opening %s: %w", path, err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store/sqlite: pinging %s: %w", path, err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store/sqlite: setting WAL mode: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store/sqlite: opening embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, sub)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store/sqlite: goose new provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store/sqlite: goose up: %w", err)
	}

	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	query, args, err := builder.Select("value").From("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return false, fmt.Errorf("store/sqlite: building get: %w", err)
	}

	var raw string
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("store/sqlite: reading %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("store/sqlite: decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store/sqlite: encoding %s: %w", key, err)
	}

	query, args, err := builder.Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, string(raw), time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("store/sqlite: building set: %w", err)
	}

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store/sqlite: writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	query, args, err := builder.Delete("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("store/sqlite: building remove: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store/sqlite: removing %s: %w", key, err)
	}
	return nil
}
