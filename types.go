// Package bosun provides synchronous, single-signature callback broadcast with
// lifetime tracking for Go.
//
// At its core, bosun offers three pieces: a Listener wraps a function or a method
// bound to an object, a Notifier broadcasts a value to every connected Listener, and
// a Trackable, embedded in an object, disconnects that object from every Notifier
// when the object is closed. Closing a Notifier removes its registrations from every
// tracked object, so neither side is ever left holding a stale reference.
//
// Quick example:
//
//	type Gauge struct {
//	    bosun.Trackable
//	    last int
//	}
//
//	func (g *Gauge) Set(v int) error { g.last = v; return nil }
//
//	changed := bosun.New[int]()
//	defer changed.Close()
//
//	g := &Gauge{}
//	changed.Connect(bosun.Method(g, (*Gauge).Set))
//
//	_ = changed.Broadcast(42) // g.last == 42
//	g.Close()                 // g is disconnected from changed
//	_ = changed.Broadcast(7)  // g is not invoked
//
// Broadcast is synchronous: every listener runs on the caller's goroutine, most
// recently connected first, and the first error aborts the remaining listeners.
package bosun

import "sync/atomic"

var lastNotifierID atomic.Uint64

// nextNotifierID returns a process-wide unique notifier identity.
func nextNotifierID() uint64 {
	return lastNotifierID.Add(1)
}

// Disconnector is anything that can be disconnected, such as a *Connection.
type Disconnector interface {
	Disconnect()
}

// Stats provides a point-in-time view of a Notifier.
type Stats struct {
	// Listeners is the number of connected listeners.
	Listeners int

	// Targets is the number of distinct objects bound by connected listeners.
	Targets int

	// Trackable is the number of distinct trackable objects this notifier is
	// registered with.
	Trackable int
}
