// Package ws is the websocket transport adapter: one persistent
// connection per browser tab, JSON events with a type discriminator.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/app"
	"github.com/Lovsan/chatterbox/internal/auth"
	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Controller struct {
	coord *app.Coordinator
	users storage.UserStore
	group storage.GroupStore

	readLimit  int64
	pingPeriod time.Duration
	sendBuffer int
}

func NewController(coord *app.Coordinator, users storage.UserStore, group storage.GroupStore, readLimit int64, pingPeriod time.Duration, sendBuffer int) *Controller {
	return &Controller{
		coord:      coord,
		users:      users,
		group:      group,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		sendBuffer: sendBuffer,
	}
}

// Handle upgrades an authenticated request and starts the pumps.
func (ctl *Controller) Handle(parent context.Context, c *gin.Context) {
	user, ok := auth.Identity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(parent)
	conn := &wsConn{
		id:     core.ConnID(uuid.NewString()),
		user:   user,
		conn:   ws,
		send:   make(chan core.Frame, ctl.sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	log.Info().Str("module", "ws").Str("conn", string(conn.id)).Str("user", user.Username).Msg("new connection")

	ctl.coord.Connect(ctx, conn)

	go ctl.writePump(conn)
	go ctl.readPump(conn)
}

func (ctl *Controller) handleEvent(c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(c.id)).Msg("bad json")
		ctl.sendError(c, core.NewError(core.KindValidation, "malformed event"))
		return
	}

	switch env.Type {
	case "send_message":
		ctl.handleSendMessage(c, data)
	case "send_group_message":
		ctl.handleSendGroupMessage(c, data)
	case "join_group_room":
		ctl.handleJoinGroupRoom(c, data)
	case "leave_group_room":
		ctl.handleLeaveGroupRoom(c, data)
	case "call_request":
		ctl.handleCallRequest(c, data)
	case "call_answer":
		ctl.handleCallAnswer(c, data)
	case "ice_candidate":
		ctl.handleIceCandidate(c, data)
	case "call_hangup":
		ctl.handleCallHangup(c, data)
	case "call_transcription_chunk":
		ctl.handleTranscriptionChunk(c, data)
	case "set_translation_preferences":
		ctl.handleTranslationPreferences(c, data)
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": core.EvPong})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, core.NewError(core.KindValidation, "unknown event type"))
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	frame, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("encode outbound event")
		return
	}
	_ = c.TrySend(frame)
}

// sendError reports a failure to the offending connection only.
func (ctl *Controller) sendError(c *wsConn, err error) {
	msg := "request failed"
	if ce, ok := err.(*core.Error); ok {
		msg = ce.Msg
	}
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EvError, Kind: core.KindOf(err), Error: msg})
}

// sendCallError mirrors sendError on the call_error channel so call UI
// state machines do not have to multiplex generic errors.
func (ctl *Controller) sendCallError(c *wsConn, err error) {
	msg := "call failed"
	if ce, ok := err.(*core.Error); ok {
		msg = ce.Msg
	}
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EvCallError, Kind: core.KindOf(err), Error: msg})
}
