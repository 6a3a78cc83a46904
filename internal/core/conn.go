package core

import (
	"context"

	"github.com/Lovsan/chatterbox/internal/domain"
)

// Frame is a marshalled outbound event.
type Frame []byte

// ConnID identifies one live connection (one browser tab).
type ConnID string

// Conn abstracts the transport endpoint the coordinator fans out to.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block: a full outbound queue returns an error instead.
type Conn interface {
	ID() ConnID
	User() *domain.User
	TrySend(Frame) error
	// Context is cancelled when the connection dies. Work attributable
	// solely to this connection should hang off it.
	Context() context.Context
	Close()
}
