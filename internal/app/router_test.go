package app

import (
	"context"
	"testing"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

type routerFixture struct {
	reg    *Registry
	rooms  *Rooms
	router *Router
	store  *fakeMessageStore
	atts   *fakeAttachmentStore

	alice, bob, carol *domain.User
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		alice: &domain.User{ID: 1, Username: "alice"},
		bob:   &domain.User{ID: 2, Username: "bob"},
		carol: &domain.User{ID: 3, Username: "carol"},
	}
	f.reg = NewRegistry()
	f.rooms = NewRooms(f.reg)
	f.store = &fakeMessageStore{}
	f.atts = &fakeAttachmentStore{}
	users := &fakeUserStore{users: map[domain.UserID]*domain.User{
		1: f.alice, 2: f.bob, 3: f.carol,
	}}
	f.router = NewRouter(f.reg, f.rooms, f.store, users, f.atts, KickSlowPolicy{})
	return f
}

func TestSendDirectDeliversOncePerConnection(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	aliceTab2 := newFakeConn("a2", f.alice)
	bobTab1 := newFakeConn("b1", f.bob)
	bobTab2 := newFakeConn("b2", f.bob)
	for _, c := range []*fakeConn{origin, aliceTab2, bobTab1, bobTab2} {
		f.reg.Register(c)
	}

	msg, err := f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{Body: "hi"}, origin.ID())
	if err != nil {
		t.Fatalf("SendDirect: %v", err)
	}
	if msg.ID == 0 || msg.Timestamp.IsZero() {
		t.Fatal("expected server-assigned id and timestamp")
	}

	// Every recipient connection gets exactly one delivery; the sender's
	// other tab sees it too; the originating connection does not.
	for _, c := range []*fakeConn{aliceTab2, bobTab1, bobTab2} {
		if got := len(c.eventsOfType(t, core.EvReceiveMessage)); got != 1 {
			t.Errorf("conn %s: expected 1 delivery, got %d", c.ID(), got)
		}
	}
	if got := len(origin.events(t)); got != 0 {
		t.Errorf("originating connection should not be echoed to, got %d events", got)
	}
}

func TestSendDirectPersistsBeforeDelivery(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	bobTab := newFakeConn("b1", f.bob)
	f.reg.Register(origin)
	f.reg.Register(bobTab)

	f.store.fail = true
	_, err := f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{Body: "hi"}, origin.ID())
	if err == nil {
		t.Fatal("expected persistence failure")
	}
	if core.KindOf(err) != core.KindPersistence {
		t.Fatalf("expected persistence kind, got %v", core.KindOf(err))
	}
	if got := len(bobTab.events(t)); got != 0 {
		t.Fatalf("no fan-out may happen when the write fails, got %d events", got)
	}
	if f.store.count() != 0 {
		t.Fatal("nothing should be in the log")
	}
}

func TestSendDirectValidation(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	f.reg.Register(origin)

	cases := []struct {
		name      string
		recipient domain.UserID
		body      string
		kind      core.ErrorKind
	}{
		{"empty body", f.bob.ID, "   ", core.KindValidation},
		{"self send", f.alice.ID, "hi me", core.KindValidation},
		{"unknown recipient", 99, "hi", core.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.router.SendDirect(context.Background(), f.alice, tc.recipient, Outgoing{Body: tc.body}, origin.ID())
			if err == nil {
				t.Fatal("expected error")
			}
			if core.KindOf(err) != tc.kind {
				t.Fatalf("expected kind %v, got %v", tc.kind, core.KindOf(err))
			}
		})
	}
	if f.store.count() != 0 {
		t.Fatal("rejected sends must not be persisted")
	}
}

func TestSendGroupRequiresMembership(t *testing.T) {
	f := newRouterFixture(t)
	gid := domain.GroupID(5)
	f.rooms.JoinGroup(f.bob.ID, gid)
	origin := newFakeConn("a1", f.alice)
	f.reg.Register(origin)

	_, err := f.router.SendGroup(context.Background(), f.alice, gid, Outgoing{Body: "hi"}, origin.ID())
	if err == nil || core.KindOf(err) != core.KindNotAMember {
		t.Fatalf("expected not_a_member, got %v", err)
	}
}

func TestSendGroupSkipsOfflineMembersButPersists(t *testing.T) {
	f := newRouterFixture(t)
	gid := domain.GroupID(5)
	for _, u := range []*domain.User{f.alice, f.bob, f.carol} {
		f.rooms.JoinGroup(u.ID, gid)
	}
	origin := newFakeConn("a1", f.alice)
	bobTab := newFakeConn("b1", f.bob)
	f.reg.Register(origin)
	f.reg.Register(bobTab)
	// carol is offline

	msg, err := f.router.SendGroup(context.Background(), f.alice, gid, Outgoing{Body: "hi"}, origin.ID())
	if err != nil {
		t.Fatalf("SendGroup: %v", err)
	}
	if got := len(bobTab.eventsOfType(t, core.EvReceiveGroupMessage)); got != 1 {
		t.Fatalf("bob should get the message live, got %d", got)
	}

	// carol can still retrieve it from history later.
	hist, err := f.store.GroupHistory(context.Background(), gid, 0, 50)
	if err != nil {
		t.Fatalf("GroupHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != msg.ID {
		t.Fatalf("expected persisted group message in history, got %v", hist)
	}
}

func TestSendDirectResolvesAttachmentToken(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	bobTab := newFakeConn("b1", f.bob)
	f.reg.Register(origin)
	f.reg.Register(bobTab)

	att := &domain.Attachment{URL: "/media/x.ogg", MediaType: "audio/ogg", Duration: 2.5}
	if err := f.atts.Put(context.Background(), "tok-1", att, 0); err != nil {
		t.Fatal(err)
	}

	msg, err := f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{AttachmentToken: "tok-1"}, origin.ID())
	if err != nil {
		t.Fatalf("SendDirect with attachment: %v", err)
	}
	if msg.Attachment == nil || msg.Attachment.URL != att.URL {
		t.Fatalf("expected attachment reference on message, got %v", msg.Attachment)
	}

	// Token is one-shot.
	_, err = f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{AttachmentToken: "tok-1"}, origin.ID())
	if err == nil || core.KindOf(err) != core.KindValidation {
		t.Fatalf("reused token should fail validation, got %v", err)
	}
}

func TestSlowConnectionIsDisconnectedNotWaitedOn(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	slow := newFakeConn("b1", f.bob)
	slow.full = true
	f.reg.Register(origin)
	f.reg.Register(slow)

	if _, err := f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{Body: "hi"}, origin.ID()); err != nil {
		t.Fatalf("SendDirect: %v", err)
	}
	slow.mu.Lock()
	closed := slow.closed
	slow.mu.Unlock()
	if !closed {
		t.Fatal("backpressure policy should close the slow connection")
	}
}

func TestPerSenderOrdering(t *testing.T) {
	f := newRouterFixture(t)
	origin := newFakeConn("a1", f.alice)
	bobTab := newFakeConn("b1", f.bob)
	f.reg.Register(origin)
	f.reg.Register(bobTab)

	bodies := []string{"one", "two", "three", "four"}
	for _, b := range bodies {
		if _, err := f.router.SendDirect(context.Background(), f.alice, f.bob.ID, Outgoing{Body: b}, origin.ID()); err != nil {
			t.Fatalf("SendDirect(%q): %v", b, err)
		}
	}

	evs := bobTab.eventsOfType(t, core.EvReceiveMessage)
	if len(evs) != len(bodies) {
		t.Fatalf("expected %d deliveries, got %d", len(bodies), len(evs))
	}
	for i, ev := range evs {
		msg := ev["message"].(map[string]any)
		if msg["body"] != bodies[i] {
			t.Fatalf("delivery %d out of order: got %v want %v", i, msg["body"], bodies[i])
		}
	}
}
