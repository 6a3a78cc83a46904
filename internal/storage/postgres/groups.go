package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

type GroupStore struct {
	db *sql.DB
}

func (s *GroupStore) Create(ctx context.Context, name string, owner domain.UserID, code string) (*domain.Group, error) {
	g := &domain.Group{Name: name, OwnerID: owner, Code: code}
	query := "INSERT INTO groups (code, name, owner_id) VALUES ($1, $2, $3) RETURNING id, created_at"
	err := s.db.QueryRowContext(ctx, query, code, name, int64(owner)).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, storage.ErrDuplicate
		}
		return nil, err
	}
	// The owner is always a member of their own group.
	if err := s.AddMember(ctx, g.ID, owner); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupStore) GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	return s.get(ctx, "SELECT id, code, name, owner_id, created_at FROM groups WHERE id = $1", int64(id))
}

func (s *GroupStore) GetByCode(ctx context.Context, code string) (*domain.Group, error) {
	return s.get(ctx, "SELECT id, code, name, owner_id, created_at FROM groups WHERE code = $1", code)
}

func (s *GroupStore) get(ctx context.Context, query string, arg any) (*domain.Group, error) {
	g := &domain.Group{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&g.ID, &g.Code, &g.Name, &g.OwnerID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *GroupStore) AddMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error {
	query := "INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	_, err := s.db.ExecContext(ctx, query, int64(gid), int64(uid))
	return err
}

func (s *GroupStore) RemoveMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error {
	query := "DELETE FROM group_members WHERE group_id = $1 AND user_id = $2"
	_, err := s.db.ExecContext(ctx, query, int64(gid), int64(uid))
	return err
}

func (s *GroupStore) IsMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) (bool, error) {
	var one int
	query := "SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2"
	err := s.db.QueryRowContext(ctx, query, int64(gid), int64(uid)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GroupStore) MembershipsOf(ctx context.Context, uid domain.UserID) ([]domain.GroupID, error) {
	query := "SELECT group_id FROM group_members WHERE user_id = $1"
	rows, err := s.db.QueryContext(ctx, query, int64(uid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupID
	for rows.Next() {
		var gid int64
		if err := rows.Scan(&gid); err != nil {
			return nil, err
		}
		out = append(out, domain.GroupID(gid))
	}
	return out, rows.Err()
}
