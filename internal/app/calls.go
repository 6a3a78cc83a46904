package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

type pairKey struct {
	caller domain.UserID
	callee domain.UserID
}

type callEntry struct {
	session    *domain.CallSession
	callerName string
	calleeName string
}

// Calls manages the offer/answer/candidate handshake between two browser
// peers. The server relays signaling verbatim and never touches media.
type Calls struct {
	presence *Registry

	mu       sync.Mutex
	sessions map[string]*callEntry
	byPair   map[pairKey]string

	// onTerminal runs after a session reaches a terminal state, outside
	// the lock. Used to drop per-session translation preferences.
	onTerminal func(sessionID string)
}

func NewCalls(presence *Registry) *Calls {
	return &Calls{
		presence: presence,
		sessions: make(map[string]*callEntry),
		byPair:   make(map[pairKey]string),
	}
}

func (c *Calls) SetOnTerminal(fn func(sessionID string)) { c.onTerminal = fn }

// Session returns the live session, if any. Terminal sessions are not
// retrievable; they are freed on transition.
func (c *Calls) Session(id string) (*domain.CallSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[id]
	if !ok {
		return nil, false
	}
	s := *e.session
	return &s, true
}

// Request starts a call. At most one non-terminal session may exist per
// ordered (caller, callee) pair; a second request is rejected, not queued.
func (c *Calls) Request(caller, callee *domain.User, offer webrtc.SessionDescription, mode domain.CallMode) (*domain.CallSession, error) {
	if caller.ID == callee.ID {
		return nil, core.NewError(core.KindValidation, "you cannot call yourself")
	}
	if mode != domain.CallModeAudio && mode != domain.CallModeVideo {
		return nil, core.NewError(core.KindValidation, "unknown call mode")
	}
	if !c.presence.IsOnline(callee.ID) {
		// No session is ever created for an offline callee.
		return nil, core.NewError(core.KindUnavailable, "that user is not online")
	}

	c.mu.Lock()
	key := pairKey{caller: caller.ID, callee: callee.ID}
	if _, busy := c.byPair[key]; busy {
		c.mu.Unlock()
		return nil, core.NewError(core.KindSessionState, "you already have a call with that user")
	}
	sess := &domain.CallSession{
		ID:        uuid.NewString(),
		RoomID:    uuid.NewString(),
		CallerID:  caller.ID,
		CalleeID:  callee.ID,
		Mode:      mode,
		State:     domain.CallRinging,
		StartedAt: time.Now().UTC(),
	}
	c.sessions[sess.ID] = &callEntry{session: sess, callerName: caller.Username, calleeName: callee.Username}
	c.byPair[key] = sess.ID
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("session", sess.ID).Int64("caller", int64(caller.ID)).Int64("callee", int64(callee.ID)).Str("mode", string(mode)).Msg("call ringing")

	c.emitToUser(caller.ID, core.CallOutgoingEvent{
		Type: core.EvCallOutgoing, SessionID: sess.ID, RoomID: sess.RoomID,
		Recipient: callee.Username, Mode: mode,
	})
	c.emitToUser(callee.ID, core.CallIncomingEvent{
		Type: core.EvCallIncoming, SessionID: sess.ID, RoomID: sess.RoomID,
		Caller: caller.Username, Mode: mode, Offer: offer,
	})
	snapshot := *sess
	return &snapshot, nil
}

// Answer resolves a ringing session. Only the callee may answer, only
// while the session is ringing.
func (c *Calls) Answer(sessionID string, callee *domain.User, accepted bool, answer *webrtc.SessionDescription) error {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return core.NewError(core.KindSessionState, "call not found")
	}
	sess := e.session
	if sess.CalleeID != callee.ID {
		c.mu.Unlock()
		return core.NewError(core.KindSessionState, "you are not part of this call")
	}
	if sess.State != domain.CallRinging {
		c.mu.Unlock()
		return core.NewError(core.KindSessionState, "call is no longer available")
	}

	if !accepted {
		c.terminateLocked(e, domain.CallDeclined, callee.ID)
		c.mu.Unlock()
		c.emitToUser(sess.CallerID, core.CallDeclinedEvent{
			Type: core.EvCallDeclined, SessionID: sess.ID, RoomID: sess.RoomID,
		})
		c.fireTerminal(sess.ID)
		return nil
	}
	if answer == nil {
		c.mu.Unlock()
		return core.NewError(core.KindValidation, "missing answer")
	}
	sess.State = domain.CallActive
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("session", sess.ID).Msg("call answered")
	c.emitToUser(sess.CallerID, core.CallAnsweredEvent{
		Type: core.EvCallAnswered, SessionID: sess.ID, RoomID: sess.RoomID, Answer: *answer,
	})
	return nil
}

// RelayCandidate forwards an ICE candidate to the other participant.
// Candidates for unknown or terminal sessions are expected stragglers
// from network jitter and dropped silently.
func (c *Calls) RelayCandidate(sessionID string, from domain.UserID, cand webrtc.ICECandidateInit) {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	sess := e.session
	if !sess.Participant(from) || sess.State.Terminal() {
		c.mu.Unlock()
		return
	}
	peer := sess.Peer(from)
	c.mu.Unlock()

	c.emitToUser(peer, core.IceCandidateEvent{
		Type: core.EvIceCandidate, SessionID: sessionID, Candidate: cand,
	})
}

// Hangup ends a ringing or active session from either side and tells the
// other participant who ended it.
func (c *Calls) Hangup(sessionID string, by *domain.User) error {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return core.NewError(core.KindSessionState, "call not found")
	}
	sess := e.session
	if !sess.Participant(by.ID) {
		c.mu.Unlock()
		return core.NewError(core.KindSessionState, "you are not part of this call")
	}
	peer := sess.Peer(by.ID)
	c.terminateLocked(e, domain.CallEnded, by.ID)
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("session", sess.ID).Int64("by", int64(by.ID)).Msg("call ended")
	c.emitToUser(peer, core.CallEndedEvent{
		Type: core.EvCallEnded, SessionID: sess.ID, RoomID: sess.RoomID, EndedBy: by.Username,
	})
	c.fireTerminal(sess.ID)
	return nil
}

// DropParticipant force-terminates every non-terminal session the user is
// bound to. Called when their last connection vanishes; the remaining
// participant receives exactly one call_ended.
func (c *Calls) DropParticipant(user *domain.User) {
	c.mu.Lock()
	type note struct {
		sessionID string
		roomID    string
		peer      domain.UserID
	}
	var notes []note
	for _, e := range c.sessions {
		sess := e.session
		if !sess.Participant(user.ID) || sess.State.Terminal() {
			continue
		}
		peer := sess.Peer(user.ID)
		c.terminateLocked(e, domain.CallEnded, user.ID)
		notes = append(notes, note{sessionID: sess.ID, roomID: sess.RoomID, peer: peer})
	}
	c.mu.Unlock()

	for _, n := range notes {
		log.Info().Str("module", "app.calls").Str("session", n.sessionID).Int64("user", int64(user.ID)).Msg("participant vanished, call ended")
		c.emitToUser(n.peer, core.CallEndedEvent{
			Type: core.EvCallEnded, SessionID: n.sessionID, RoomID: n.roomID, EndedBy: user.Username,
		})
		c.fireTerminal(n.sessionID)
	}
}

// terminateLocked moves a session to a terminal state and frees it.
// Caller holds c.mu.
func (c *Calls) terminateLocked(e *callEntry, state domain.CallState, by domain.UserID) {
	sess := e.session
	sess.State = state
	sess.EndedAt = time.Now().UTC()
	sess.EndedBy = by
	delete(c.sessions, sess.ID)
	delete(c.byPair, pairKey{caller: sess.CallerID, callee: sess.CalleeID})
}

func (c *Calls) fireTerminal(sessionID string) {
	if c.onTerminal != nil {
		c.onTerminal(sessionID)
	}
}

// emitToUser sends an event to every live connection of an identity.
// Signaling is routed only to the two bound identities, never broadcast.
func (c *Calls) emitToUser(uid domain.UserID, ev any) {
	frame, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.calls").Msg("encode signaling event")
		return
	}
	for _, conn := range c.presence.ConnectionsFor(uid) {
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.calls").Str("conn", string(conn.ID())).Msg("signaling send dropped")
		}
	}
}
