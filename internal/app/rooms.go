package app

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

// RoomKey names a logical fan-out scope. Direct channels are a pure
// function of the two identities and never materialized; group rooms are
// explicit membership sets.
type RoomKey string

// DirectKey canonicalizes an unordered pair so both participants compute
// the same key regardless of sender/recipient order.
func DirectKey(a, b domain.UserID) RoomKey {
	if b < a {
		a, b = b, a
	}
	return RoomKey(fmt.Sprintf("dm:%d:%d", a, b))
}

func GroupKey(id domain.GroupID) RoomKey {
	return RoomKey(fmt.Sprintf("group:%d", id))
}

// Rooms tracks group membership by identity, not by connection, so
// membership survives reconnects. Authorization for joins is delegated to
// the HTTP layer and assumed pre-validated here.
type Rooms struct {
	presence *Registry

	mu     sync.RWMutex
	groups map[domain.GroupID]map[domain.UserID]struct{}
}

func NewRooms(presence *Registry) *Rooms {
	return &Rooms{
		presence: presence,
		groups:   make(map[domain.GroupID]map[domain.UserID]struct{}),
	}
}

func (r *Rooms) JoinGroup(uid domain.UserID, gid domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.groups[gid]
	if !ok {
		set = make(map[domain.UserID]struct{})
		r.groups[gid] = set
	}
	set[uid] = struct{}{}
	log.Debug().Str("module", "app.rooms").Int64("user", int64(uid)).Int64("group", int64(gid)).Msg("joined group room")
}

func (r *Rooms) LeaveGroup(uid domain.UserID, gid domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.groups[gid]; ok {
		delete(set, uid)
		if len(set) == 0 {
			delete(r.groups, gid)
		}
	}
}

// Hydrate seeds a freshly authenticated identity into all of its group
// rooms at once, so fan-out reaches every tab without explicit joins.
func (r *Rooms) Hydrate(uid domain.UserID, groups []domain.GroupID) {
	for _, gid := range groups {
		r.JoinGroup(uid, gid)
	}
}

func (r *Rooms) IsGroupMember(uid domain.UserID, gid domain.GroupID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[gid][uid]
	return ok
}

// MembersOf resolves a room key to its current identity set. For direct
// rooms that is always the two identities baked into the key.
func (r *Rooms) MembersOf(key RoomKey) []domain.UserID {
	s := string(key)
	switch {
	case strings.HasPrefix(s, "dm:"):
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil
		}
		a, err1 := strconv.ParseInt(parts[1], 10, 64)
		b, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		return []domain.UserID{domain.UserID(a), domain.UserID(b)}
	case strings.HasPrefix(s, "group:"):
		gid, err := strconv.ParseInt(strings.TrimPrefix(s, "group:"), 10, 64)
		if err != nil {
			return nil
		}
		r.mu.RLock()
		defer r.mu.RUnlock()
		set := r.groups[domain.GroupID(gid)]
		out := make([]domain.UserID, 0, len(set))
		for uid := range set {
			out = append(out, uid)
		}
		return out
	}
	return nil
}

// FanoutTargets composes MembersOf with the presence registry. Called
// immediately before emitting so the set always reflects current presence,
// never a snapshot taken at join time.
func (r *Rooms) FanoutTargets(key RoomKey) []core.Conn {
	var out []core.Conn
	for _, uid := range r.MembersOf(key) {
		out = append(out, r.presence.ConnectionsFor(uid)...)
	}
	return out
}
