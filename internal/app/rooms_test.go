package app

import (
	"testing"

	"github.com/Lovsan/chatterbox/internal/domain"
)

func TestDirectKeyIsSymmetric(t *testing.T) {
	pairs := [][2]domain.UserID{{1, 2}, {2, 1}, {10, 3}, {42, 42}}
	for _, p := range pairs {
		if DirectKey(p[0], p[1]) != DirectKey(p[1], p[0]) {
			t.Errorf("DirectKey(%d,%d) != DirectKey(%d,%d)", p[0], p[1], p[1], p[0])
		}
	}
	if DirectKey(1, 2) == DirectKey(1, 3) {
		t.Error("distinct pairs must produce distinct keys")
	}
}

func TestMembersOfDirect(t *testing.T) {
	rooms := NewRooms(NewRegistry())
	members := rooms.MembersOf(DirectKey(5, 2))
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	seen := map[domain.UserID]bool{}
	for _, m := range members {
		seen[m] = true
	}
	if !seen[2] || !seen[5] {
		t.Fatalf("expected members {2,5}, got %v", members)
	}
}

func TestGroupMembershipLifecycle(t *testing.T) {
	rooms := NewRooms(NewRegistry())
	gid := domain.GroupID(9)

	if rooms.IsGroupMember(1, gid) {
		t.Fatal("no membership before join")
	}
	rooms.JoinGroup(1, gid)
	rooms.JoinGroup(2, gid)
	if !rooms.IsGroupMember(1, gid) || !rooms.IsGroupMember(2, gid) {
		t.Fatal("both users should be members")
	}
	if got := len(rooms.MembersOf(GroupKey(gid))); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}

	rooms.LeaveGroup(1, gid)
	if rooms.IsGroupMember(1, gid) {
		t.Fatal("membership should be gone after leave")
	}
}

func TestFanoutTargetsReflectCurrentPresence(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRooms(reg)
	gid := domain.GroupID(1)
	alice := &domain.User{ID: 1, Username: "alice"}
	bob := &domain.User{ID: 2, Username: "bob"}
	rooms.JoinGroup(alice.ID, gid)
	rooms.JoinGroup(bob.ID, gid)

	// Membership survives while presence changes underneath.
	if got := len(rooms.FanoutTargets(GroupKey(gid))); got != 0 {
		t.Fatalf("nobody online yet, got %d targets", got)
	}

	a1 := newFakeConn("a1", alice)
	b1 := newFakeConn("b1", bob)
	b2 := newFakeConn("b2", bob)
	reg.Register(a1)
	reg.Register(b1)
	reg.Register(b2)
	if got := len(rooms.FanoutTargets(GroupKey(gid))); got != 3 {
		t.Fatalf("expected 3 targets, got %d", got)
	}

	reg.Unregister(b1.ID())
	if got := len(rooms.FanoutTargets(GroupKey(gid))); got != 2 {
		t.Fatalf("expected 2 targets after disconnect, got %d", got)
	}
}
