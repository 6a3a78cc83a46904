// Package storage defines the persistence contracts the coordinator
// depends on. Implementations live in subpackages (postgres, redisstore).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Lovsan/chatterbox/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrTokenExpired = errors.New("attachment token expired or unknown")
)

// MessageStore is the durable message log. Append must complete, or fail
// explicitly, before any fan-out happens.
type MessageStore interface {
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// DirectHistory returns messages between a and b, newest first.
	// beforeID == 0 means "from the latest".
	DirectHistory(ctx context.Context, a, b domain.UserID, beforeID int64, limit int) ([]*domain.Message, error)
	GroupHistory(ctx context.Context, gid domain.GroupID, beforeID int64, limit int) ([]*domain.Message, error)
}

type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*domain.User, error)
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	// GetByUsername also returns the stored password hash for login.
	GetByUsername(ctx context.Context, username string) (*domain.User, string, error)
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

type GroupStore interface {
	Create(ctx context.Context, name string, owner domain.UserID, code string) (*domain.Group, error)
	GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error)
	GetByCode(ctx context.Context, code string) (*domain.Group, error)
	AddMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error
	RemoveMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error
	IsMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) (bool, error)
	MembershipsOf(ctx context.Context, uid domain.UserID) ([]domain.GroupID, error)
}

// AttachmentStore holds claim tokens for uploaded blobs. Tokens expire;
// Claim is one-shot so a token cannot be attached to two messages.
type AttachmentStore interface {
	Put(ctx context.Context, token string, att *domain.Attachment, ttl time.Duration) error
	Claim(ctx context.Context, token string) (*domain.Attachment, error)
}
