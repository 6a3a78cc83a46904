package app

import "github.com/Lovsan/chatterbox/internal/core"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a connection whose bounded outbound
// queue is full. The router must never stall on a slow client.
type Policy interface {
	OnBackpressure(conn core.Conn) BackpressureAction
}

// KickSlowPolicy closes connections that cannot keep up; the transport
// layer then reports the disconnect like any other.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(conn core.Conn) BackpressureAction {
	return Disconnect
}
