package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/app"
	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

func (ctl *Controller) handleSendMessage(c *wsConn, data []byte) {
	var p struct {
		Type            string `json:"type"`
		RecipientID     int64  `json:"recipient_id"`
		Body            string `json:"body"`
		AttachmentToken string `json:"attachment_token,omitempty"`
		Ciphertext      []byte `json:"ciphertext,omitempty"`
		Nonce           []byte `json:"nonce,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad send_message payload"))
		return
	}
	if p.RecipientID == 0 {
		ctl.sendError(c, core.NewError(core.KindValidation, "recipient is required"))
		return
	}

	out := app.Outgoing{
		Body:            p.Body,
		AttachmentToken: p.AttachmentToken,
		Ciphertext:      p.Ciphertext,
		Nonce:           p.Nonce,
	}
	msg, err := ctl.coord.Router.SendDirect(c.ctx, c.user, domain.UserID(p.RecipientID), out, c.id)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	// The originating tab updates its own view from this ack instead of
	// a fan-out round trip.
	ctl.sendJSON(c, core.MessageEvent{Type: core.EvReceiveMessage, Message: msg})
}

func (ctl *Controller) handleSendGroupMessage(c *wsConn, data []byte) {
	var p struct {
		Type            string `json:"type"`
		GroupID         int64  `json:"group_id"`
		Body            string `json:"body"`
		AttachmentToken string `json:"attachment_token,omitempty"`
		Ciphertext      []byte `json:"ciphertext,omitempty"`
		Nonce           []byte `json:"nonce,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad send_group_message payload"))
		return
	}
	if p.GroupID == 0 {
		ctl.sendError(c, core.NewError(core.KindValidation, "group is required"))
		return
	}

	out := app.Outgoing{
		Body:            p.Body,
		AttachmentToken: p.AttachmentToken,
		Ciphertext:      p.Ciphertext,
		Nonce:           p.Nonce,
	}
	msg, err := ctl.coord.Router.SendGroup(c.ctx, c.user, domain.GroupID(p.GroupID), out, c.id)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, core.MessageEvent{Type: core.EvReceiveGroupMessage, Message: msg})
}

// handleJoinGroupRoom subscribes this identity to a group's live fan-out.
// Membership itself is granted over REST; this only verifies it.
func (ctl *Controller) handleJoinGroupRoom(c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		GroupID int64  `json:"group_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == 0 {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad join_group_room payload"))
		return
	}

	member, err := ctl.group.IsMember(c.ctx, domain.GroupID(p.GroupID), c.user.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("membership lookup failed")
		ctl.sendError(c, core.WrapError(core.KindPersistence, "membership lookup failed", err))
		return
	}
	if !member {
		ctl.sendError(c, core.NewError(core.KindNotAMember, "you are not a member of this group"))
		return
	}
	ctl.coord.Rooms.JoinGroup(c.user.ID, domain.GroupID(p.GroupID))
}

func (ctl *Controller) handleLeaveGroupRoom(c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		GroupID int64  `json:"group_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GroupID == 0 {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad leave_group_room payload"))
		return
	}
	ctl.coord.Rooms.LeaveGroup(c.user.ID, domain.GroupID(p.GroupID))
}
