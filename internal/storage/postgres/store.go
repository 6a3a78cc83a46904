// Package postgres implements the storage contracts on PostgreSQL via
// database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Users() *UserStore       { return &UserStore{db: s.db} }
func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.db} }
func (s *Store) Groups() *GroupStore     { return &GroupStore{db: s.db} }

// Migrate creates the schema. Idempotent; runs at every startup.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(20) UNIQUE NOT NULL,
			password VARCHAR(200) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id BIGSERIAL PRIMARY KEY,
			code VARCHAR(12) UNIQUE NOT NULL,
			name VARCHAR(100) NOT NULL,
			owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_members (
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			recipient_id BIGINT REFERENCES users(id) ON DELETE CASCADE,
			group_id BIGINT REFERENCES groups(id) ON DELETE CASCADE,
			body TEXT NOT NULL,
			attachment_url TEXT,
			attachment_type TEXT,
			attachment_duration DOUBLE PRECISION,
			ciphertext BYTEA,
			nonce BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (recipient_id IS NOT NULL OR group_id IS NOT NULL)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_direct
			ON messages (LEAST(sender_id, recipient_id), GREATEST(sender_id, recipient_id), id DESC)
			WHERE recipient_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_messages_group
			ON messages (group_id, id DESC)
			WHERE group_id IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Info().Str("module", "storage.postgres").Msg("schema ready")
	return nil
}
