package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"commune/pkg/platform/sentinel"
)

// Schema creates the settings table. Language '' holds the language-neutral value.
const Schema = `
CREATE TABLE IF NOT EXISTS config (
	setting  VARCHAR(255) NOT NULL,
	language VARCHAR(8)   NOT NULL DEFAULT '',
	value    TEXT         NOT NULL,
	PRIMARY KEY (setting, language)
)`

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists settings in Postgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate config table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, key, lang string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM config WHERE setting = $1 AND language = $2`,
		key, lang,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("setting %s/%q: %w", key, lang, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find setting %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, key, lang, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO config (setting, language, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (setting, language) DO UPDATE SET value = EXCLUDED.value
	`, key, lang, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key, lang string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM config WHERE setting = $1 AND language = $2`,
		key, lang,
	)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("setting %s/%q: %w", key, lang, sentinel.ErrNotFound)
	}
	return nil
}
