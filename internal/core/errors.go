package core

import "fmt"

// ErrorKind classifies a rejected operation. Kinds are part of the wire
// protocol: clients branch on them.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotAMember   ErrorKind = "not_a_member"
	KindUnavailable  ErrorKind = "recipient_unavailable"
	KindPersistence  ErrorKind = "persistence_failure"
	KindSessionState ErrorKind = "session_state"
	KindTransport    ErrorKind = "transport"
)

// Error is scoped to the connection that caused it; it never corrupts
// another connection's view.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from any error, defaulting to validation so a
// stray error is still reported to the sender only.
func KindOf(err error) ErrorKind {
	if ce, ok := err.(*Error); ok {
		return ce.Kind
	}
	return KindValidation
}
