package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

// Registry maps an authenticated identity to its live connections.
// Pure in-memory bookkeeping; every other component queries it to answer
// "where is this user now".
type Registry struct {
	mu     sync.RWMutex
	conns  map[core.ConnID]core.Conn
	byUser map[domain.UserID]map[core.ConnID]core.Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[core.ConnID]core.Conn),
		byUser: make(map[domain.UserID]map[core.ConnID]core.Conn),
	}
}

// Register binds a connection under its identity. Concurrent registrations
// for the same identity are additive (multiple tabs/devices).
func (r *Registry) Register(conn core.Conn) {
	uid := conn.User().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
	set, ok := r.byUser[uid]
	if !ok {
		set = make(map[core.ConnID]core.Conn)
		r.byUser[uid] = set
	}
	set[conn.ID()] = conn
	log.Info().Str("module", "app.presence").Str("conn", string(conn.ID())).Int64("user", int64(uid)).Msg("connection registered")
}

// Unregister removes a connection from whatever identity owns it.
// Idempotent. Returns the owning user and whether this was their last
// connection, so call teardown can run exactly once.
func (r *Registry) Unregister(id core.ConnID) (user *domain.User, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	user = conn.User()
	if set, ok := r.byUser[user.ID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byUser, user.ID)
			last = true
		}
	}
	log.Info().Str("module", "app.presence").Str("conn", string(id)).Int64("user", int64(user.ID)).Bool("last", last).Msg("connection unregistered")
	return user, last
}

// ConnectionsFor returns the live fan-out set; empty means offline.
func (r *Registry) ConnectionsFor(uid domain.UserID) []core.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[uid]
	out := make([]core.Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[uid]) > 0
}

func (r *Registry) Get(id core.ConnID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}
