package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/storage"
)

// Coordinator wires the long-lived shared state structures together and
// owns connection lifecycle. Everything here is passed by reference from
// the entrypoint; there are no package-level tables.
type Coordinator struct {
	Presence *Registry
	Rooms    *Rooms
	Router   *Router
	Calls    *Calls
	Relay    *Relay

	groups storage.GroupStore
}

func NewCoordinator(presence *Registry, rooms *Rooms, router *Router, calls *Calls, relay *Relay, groups storage.GroupStore) *Coordinator {
	return &Coordinator{
		Presence: presence,
		Rooms:    rooms,
		Router:   router,
		Calls:    calls,
		Relay:    relay,
		groups:   groups,
	}
}

// Connect registers a freshly authenticated connection and hydrates the
// identity into all of its group rooms so fan-out reaches this tab too.
func (c *Coordinator) Connect(ctx context.Context, conn core.Conn) {
	c.Presence.Register(conn)
	memberships, err := c.groups.MembershipsOf(ctx, conn.User().ID)
	if err != nil {
		// The connection still works for direct chat; group fan-out for
		// this identity recovers on the next join or reconnect.
		log.Error().Err(err).Str("module", "app.coordinator").Int64("user", int64(conn.User().ID)).Msg("membership hydration failed")
		return
	}
	c.Rooms.Hydrate(conn.User().ID, memberships)
}

// Disconnect must fire exactly once per connection, including abnormal
// termination. Losing the identity's last connection force-terminates
// the calls it was part of.
func (c *Coordinator) Disconnect(id core.ConnID) {
	user, last := c.Presence.Unregister(id)
	if user == nil {
		return
	}
	if last {
		c.Calls.DropParticipant(user)
	}
}
