package core

import (
	"encoding/json"

	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Server→client event names.
const (
	EvReceiveMessage      = "receive_message"
	EvReceiveGroupMessage = "receive_group_message"
	EvCallIncoming        = "call_incoming"
	EvCallOutgoing        = "call_outgoing"
	EvCallAnswered        = "call_answered"
	EvCallDeclined        = "call_declined"
	EvCallEnded           = "call_ended"
	EvIceCandidate        = "ice_candidate"
	EvCallError           = "call_error"
	EvTranslatedCaption   = "translated_caption"
	EvTranslationError    = "translation_error"
	EvError               = "error"
	EvPong                = "pong"
)

// Encode marshals an outbound event into a Frame. Payload structs own
// their "type" field so the adapter stays a dumb pipe.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

type MessageEvent struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message"`
}

type ErrorEvent struct {
	Type  string    `json:"type"`
	Kind  ErrorKind `json:"kind"`
	Error string    `json:"error"`
}

type CallOutgoingEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	RoomID    string          `json:"roomId"`
	Recipient string          `json:"recipient"`
	Mode      domain.CallMode `json:"mode"`
}

type CallIncomingEvent struct {
	Type      string                    `json:"type"`
	SessionID string                    `json:"sessionId"`
	RoomID    string                    `json:"roomId"`
	Caller    string                    `json:"caller"`
	Mode      domain.CallMode           `json:"mode"`
	Offer     webrtc.SessionDescription `json:"offer"`
}

type CallAnsweredEvent struct {
	Type      string                    `json:"type"`
	SessionID string                    `json:"sessionId"`
	RoomID    string                    `json:"roomId"`
	Answer    webrtc.SessionDescription `json:"answer"`
}

type CallDeclinedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
}

type CallEndedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
	EndedBy   string `json:"endedBy"`
}

type IceCandidateEvent struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"sessionId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type CaptionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Speaker   string `json:"speaker"`
	Language  string `json:"language"`
	Text      string `json:"text"`
}

type TranslationErrorEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error"`
}
