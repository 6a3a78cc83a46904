// Package auth verifies identities for the coordinator. The core trusts
// the identity it produces for the lifetime of a connection.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users  storage.UserStore
	secret []byte
}

type claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(users storage.UserStore, secret string) *Service {
	return &Service{users: users, secret: []byte(secret)}
}

func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, string(hash))
}

func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, hash, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   int64(user.ID),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chatterbox",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, "", err
	}
	return user, signed, nil
}

// Validate parses a token and returns the verified identity.
func (s *Service) Validate(tokenString string) (*domain.User, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return &domain.User{ID: domain.UserID(c.UserID), Username: c.Username}, nil
}
