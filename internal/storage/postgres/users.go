package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

type UserStore struct {
	db *sql.DB
}

func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	u := &domain.User{Username: username}
	query := "INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id"
	err := s.db.QueryRowContext(ctx, query, username, passwordHash).Scan(&u.ID)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, storage.ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	u := &domain.User{}
	query := "SELECT id, username FROM users WHERE id = $1"
	err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(&u.ID, &u.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, string, error) {
	u := &domain.User{}
	var hash string
	query := "SELECT id, username, password FROM users WHERE username = $1"
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", storage.ErrNotFound
		}
		return nil, "", err
	}
	return u, hash, nil
}

func (s *UserStore) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := "SELECT id, username FROM users WHERE username ILIKE $1 ORDER BY username LIMIT $2"
	rows, err := s.db.QueryContext(ctx, q, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
