package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

// Router validates, persists and fans out chat messages. The durable
// write always happens before any delivery: if Append fails, nobody
// receives anything and only the sender hears about it.
type Router struct {
	presence    *Registry
	rooms       *Rooms
	messages    storage.MessageStore
	users       storage.UserStore
	attachments storage.AttachmentStore
	policy      Policy
}

func NewRouter(presence *Registry, rooms *Rooms, messages storage.MessageStore, users storage.UserStore, attachments storage.AttachmentStore, policy Policy) *Router {
	return &Router{
		presence:    presence,
		rooms:       rooms,
		messages:    messages,
		users:       users,
		attachments: attachments,
		policy:      policy,
	}
}

// Outgoing is the transport-level shape of a send intent, after the
// adapter has unmarshalled it but before validation.
type Outgoing struct {
	Body            string
	AttachmentToken string
	Ciphertext      []byte
	Nonce           []byte
}

// SendDirect routes a direct message. The originating connection is
// excluded from fan-out; the sender's other tabs still see it.
func (r *Router) SendDirect(ctx context.Context, sender *domain.User, recipient domain.UserID, out Outgoing, origin core.ConnID) (*domain.Message, error) {
	if recipient == sender.ID {
		return nil, core.NewError(core.KindValidation, "you cannot send a message to yourself")
	}
	if _, err := r.users.GetByID(ctx, recipient); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NewError(core.KindValidation, "recipient not found")
		}
		return nil, core.WrapError(core.KindPersistence, "recipient lookup failed", err)
	}
	msg, err := r.build(ctx, sender, out)
	if err != nil {
		return nil, err
	}
	msg.RecipientID = recipient

	persisted, err := r.messages.Append(ctx, msg)
	if err != nil {
		return nil, core.WrapError(core.KindPersistence, "message not saved", err)
	}
	r.fanout(DirectKey(sender.ID, recipient), persisted, origin)
	return persisted, nil
}

// SendGroup routes a message to a group room. Rejects senders that are
// not current members.
func (r *Router) SendGroup(ctx context.Context, sender *domain.User, gid domain.GroupID, out Outgoing, origin core.ConnID) (*domain.Message, error) {
	if !r.rooms.IsGroupMember(sender.ID, gid) {
		return nil, core.NewError(core.KindNotAMember, "you are not a member of this group")
	}
	msg, err := r.build(ctx, sender, out)
	if err != nil {
		return nil, err
	}
	msg.GroupID = gid

	persisted, err := r.messages.Append(ctx, msg)
	if err != nil {
		return nil, core.WrapError(core.KindPersistence, "message not saved", err)
	}
	r.fanout(GroupKey(gid), persisted, origin)
	return persisted, nil
}

func (r *Router) build(ctx context.Context, sender *domain.User, out Outgoing) (*domain.Message, error) {
	var att *domain.Attachment
	if out.AttachmentToken != "" {
		var err error
		att, err = r.attachments.Claim(ctx, out.AttachmentToken)
		if err != nil {
			if errors.Is(err, storage.ErrTokenExpired) {
				return nil, core.NewError(core.KindValidation, "attachment token expired")
			}
			return nil, core.WrapError(core.KindPersistence, "attachment lookup failed", err)
		}
	}
	body, err := domain.ValidateBody(out.Body, att != nil || len(out.Ciphertext) > 0)
	if err != nil {
		return nil, core.WrapError(core.KindValidation, err.Error(), err)
	}
	return &domain.Message{
		SenderID:   sender.ID,
		Sender:     sender.Username,
		Body:       body,
		Attachment: att,
		Ciphertext: out.Ciphertext,
		Nonce:      out.Nonce,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (r *Router) fanout(key RoomKey, msg *domain.Message, origin core.ConnID) {
	ev := core.MessageEvent{Type: core.EvReceiveMessage, Message: msg}
	if msg.GroupID != 0 {
		ev.Type = core.EvReceiveGroupMessage
	}
	frame, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("encode delivery event")
		return
	}
	sent, dropped := 0, 0
	for _, conn := range r.rooms.FanoutTargets(key) {
		if conn.ID() == origin {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			dropped++
			if r.policy != nil && r.policy.OnBackpressure(conn) == Disconnect {
				conn.Close()
			}
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.router").Str("room", string(key)).Int("sent_to", sent).Int("dropped", dropped).Msg("fanout")
}
