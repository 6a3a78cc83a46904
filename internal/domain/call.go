package domain

import "time"

type CallState string

const (
	CallRinging  CallState = "ringing"
	CallActive   CallState = "active"
	CallEnded    CallState = "ended"
	CallDeclined CallState = "declined"
	CallFailed   CallState = "failed"
)

// Terminal reports whether the state frees the session.
func (s CallState) Terminal() bool {
	switch s {
	case CallEnded, CallDeclined, CallFailed:
		return true
	}
	return false
}

type CallMode string

const (
	CallModeAudio CallMode = "audio"
	CallModeVideo CallMode = "video"
)

// CallSession is the signaling-only record of a peer-to-peer call.
// Media never passes through the server.
type CallSession struct {
	ID        string    `json:"session_id"`
	RoomID    string    `json:"room_id"`
	CallerID  UserID    `json:"caller_id"`
	CalleeID  UserID    `json:"callee_id"`
	Mode      CallMode  `json:"mode"`
	State     CallState `json:"state"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	EndedBy   UserID    `json:"ended_by,omitempty"`
}

// Participant reports whether id is one of the two bound identities.
func (s *CallSession) Participant(id UserID) bool {
	return id == s.CallerID || id == s.CalleeID
}

// Peer returns the other participant.
func (s *CallSession) Peer(id UserID) UserID {
	if id == s.CallerID {
		return s.CalleeID
	}
	return s.CallerID
}
