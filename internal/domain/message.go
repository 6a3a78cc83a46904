package domain

import (
	"errors"
	"strings"
	"time"
)

const MaxMessageLen = 500

var (
	ErrMessageEmpty   = errors.New("message empty")
	ErrMessageTooLong = errors.New("message too long")
)

type GroupID int64

// Attachment is a stable reference to an uploaded blob. The server only
// ever carries this reference, never the bytes.
type Attachment struct {
	URL       string  `json:"url"`
	MediaType string  `json:"media_type"`
	Duration  float64 `json:"duration,omitempty"`
}

// Message is immutable once emitted. Exactly one of RecipientID/GroupID is
// set, depending on whether it targets a direct channel or a group room.
type Message struct {
	ID          int64       `json:"id"`
	SenderID    UserID      `json:"sender_id"`
	Sender      string      `json:"sender"`
	RecipientID UserID      `json:"recipient_id,omitempty"`
	GroupID     GroupID     `json:"group_id,omitempty"`
	Body        string      `json:"body"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	// Ciphertext and Nonce are opaque pass-through values for clients that
	// encrypt end to end. The server never decrypts them.
	Ciphertext []byte    `json:"ciphertext,omitempty"`
	Nonce      []byte    `json:"nonce,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidateBody trims and bounds a message body. A message with an
// attachment may have an empty body.
func ValidateBody(body string, hasAttachment bool) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" && !hasAttachment {
		return "", ErrMessageEmpty
	}
	if len(body) > MaxMessageLen {
		return "", ErrMessageTooLong
	}
	return body, nil
}
