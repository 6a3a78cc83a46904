package ws

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

func (ctl *Controller) handleCallRequest(c *wsConn, data []byte) {
	var p struct {
		Type   string                    `json:"type"`
		Target string                    `json:"target"`
		Offer  webrtc.SessionDescription `json:"offer"`
		Mode   string                    `json:"mode"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		ctl.sendCallError(c, core.NewError(core.KindValidation, "bad call_request payload"))
		return
	}

	callee, _, err := ctl.users.GetByUsername(c.ctx, p.Target)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctl.sendCallError(c, core.NewError(core.KindUnavailable, "user not found"))
			return
		}
		ctl.sendCallError(c, core.WrapError(core.KindPersistence, "user lookup failed", err))
		return
	}

	if _, err := ctl.coord.Calls.Request(c.user, callee, p.Offer, domain.CallMode(p.Mode)); err != nil {
		ctl.sendCallError(c, err)
	}
}

func (ctl *Controller) handleCallAnswer(c *wsConn, data []byte) {
	var p struct {
		Type      string                     `json:"type"`
		SessionID string                     `json:"sessionId"`
		Accepted  bool                       `json:"accepted"`
		Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendCallError(c, core.NewError(core.KindValidation, "bad call_answer payload"))
		return
	}
	if err := ctl.coord.Calls.Answer(p.SessionID, c.user, p.Accepted, p.Answer); err != nil {
		ctl.sendCallError(c, err)
	}
}

// handleIceCandidate relays trickle candidates. Stragglers for sessions
// that already ended are dropped without an error frame.
func (ctl *Controller) handleIceCandidate(c *wsConn, data []byte) {
	var p struct {
		Type      string                  `json:"type"`
		SessionID string                  `json:"sessionId"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		return
	}
	ctl.coord.Calls.RelayCandidate(p.SessionID, c.user.ID, p.Candidate)
}

func (ctl *Controller) handleCallHangup(c *wsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendCallError(c, core.NewError(core.KindValidation, "bad call_hangup payload"))
		return
	}
	if err := ctl.coord.Calls.Hangup(p.SessionID, c.user); err != nil {
		ctl.sendCallError(c, err)
	}
}
