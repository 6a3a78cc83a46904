package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

const writeWait = 5 * time.Second

var ErrBackpressure = errors.New("backpressure")

// wsConn adapts one gorilla connection to core.Conn. The send channel is
// bounded; a full channel surfaces as ErrBackpressure instead of
// blocking the router.
type wsConn struct {
	id   core.ConnID
	user *domain.User
	conn *websocket.Conn
	send chan core.Frame

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) ID() core.ConnID          { return c.id }
func (c *wsConn) User() *domain.User       { return c.user }
func (c *wsConn) Context() context.Context { return c.ctx }

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.cancel()
	_ = c.conn.Close()
}

func (ctl *Controller) writePump(c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(c *wsConn) {
	defer func() {
		// Disconnect fires exactly once per connection, abnormal
		// termination included: every exit path runs through here.
		ctl.coord.Disconnect(c.id)
		c.Close()
		log.Info().Str("module", "ws").Str("conn", string(c.id)).Msg("connection closed")
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	pongWait := ctl.pingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "ws").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		// One event at a time, in arrival order, per connection.
		ctl.handleEvent(c, data)
	}
}
