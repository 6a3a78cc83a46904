// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 20

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// UserID is the stable identity reference issued by the auth layer.
// Connections come and go; the UserID survives reconnects.
type UserID int64

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
