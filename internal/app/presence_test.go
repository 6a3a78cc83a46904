package app

import (
	"strconv"
	"sync"
	"testing"

	"github.com/Lovsan/chatterbox/internal/domain"
)

func TestRegisterMultipleTabs(t *testing.T) {
	reg := NewRegistry()
	alice := &domain.User{ID: 1, Username: "alice"}

	tab1 := newFakeConn("c1", alice)
	tab2 := newFakeConn("c2", alice)
	reg.Register(tab1)
	reg.Register(tab2)

	if !reg.IsOnline(alice.ID) {
		t.Fatal("alice should be online")
	}
	if got := len(reg.ConnectionsFor(alice.ID)); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}
}

func TestUnregisterLastConnectionMarksOffline(t *testing.T) {
	reg := NewRegistry()
	alice := &domain.User{ID: 1, Username: "alice"}
	tab1 := newFakeConn("c1", alice)
	tab2 := newFakeConn("c2", alice)
	reg.Register(tab1)
	reg.Register(tab2)

	user, last := reg.Unregister(tab1.ID())
	if user == nil || last {
		t.Fatalf("first unregister: expected user and last=false, got user=%v last=%v", user, last)
	}
	if !reg.IsOnline(alice.ID) {
		t.Fatal("alice should still be online with one tab left")
	}

	user, last = reg.Unregister(tab2.ID())
	if user == nil || !last {
		t.Fatalf("second unregister: expected last=true, got user=%v last=%v", user, last)
	}
	if reg.IsOnline(alice.ID) {
		t.Fatal("alice should be offline")
	}
	if got := len(reg.ConnectionsFor(alice.ID)); got != 0 {
		t.Fatalf("expected empty fan-out set, got %d", got)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	conn := newFakeConn("c1", &domain.User{ID: 1, Username: "alice"})
	reg.Register(conn)

	reg.Unregister(conn.ID())
	user, last := reg.Unregister(conn.ID())
	if user != nil || last {
		t.Fatalf("second unregister should be a no-op, got user=%v last=%v", user, last)
	}
}

func TestConcurrentRegistrations(t *testing.T) {
	reg := NewRegistry()
	user := &domain.User{ID: 7, Username: "bob"}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register(newFakeConn("c"+strconv.Itoa(i), user))
		}(i)
	}
	wg.Wait()

	if got := len(reg.ConnectionsFor(user.ID)); got != n {
		t.Fatalf("expected %d connections, got %d", n, got)
	}
}
