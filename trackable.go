package bosun

import "sync"

// Tracked is implemented by any type that embeds Trackable.
// Listeners bound to a Tracked object are disconnected from every Notifier when
// the object's Close is called.
type Tracked interface {
	tracking() *Trackable
}

// registration is one notifier's claim on a tracked object.
type registration struct {
	// release drops every listener bound to the object from the notifier.
	release func()

	// alive reports whether the notifier can still be reached.
	alive func() bool
}

// Trackable gives an object automatic disconnection. Embed it by value:
//
//	type Widget struct {
//	    bosun.Trackable
//	    // ...
//	}
//
// and call Close when the object is done. The zero value is ready to use.
// A Trackable must not be copied after first use.
type Trackable struct {
	registrations map[uint64]registration
	closed        bool
	mu            sync.Mutex
}

func (t *Trackable) tracking() *Trackable { return t }

// track registers a notifier. Registering the same notifier twice keeps the first
// registration. Returns false if the object has already been closed.
func (t *Trackable) track(id uint64, reg registration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	if t.registrations == nil {
		t.registrations = make(map[uint64]registration)
	}

	// Notifiers that were collected without being closed leave entries behind.
	for other, r := range t.registrations {
		if other != id && !r.alive() {
			delete(t.registrations, other)
		}
	}

	if _, exists := t.registrations[id]; !exists {
		t.registrations[id] = reg
	}
	return true
}

// untrack removes the registration for a notifier.
func (t *Trackable) untrack(id uint64) {
	t.mu.Lock()
	delete(t.registrations, id)
	t.mu.Unlock()
}

// Close disconnects the object from every notifier tracking it.
// Safe to call multiple times; subsequent calls are no-ops.
// Once Close has begun, no notifier will invoke a listener bound to the object,
// and new connections to it are rejected.
func (t *Trackable) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	registrations := t.registrations
	t.registrations = nil
	t.mu.Unlock()

	// Release outside the lock: notifiers call back into untrack.
	for _, r := range registrations {
		r.release()
	}
}

// Closed reports whether Close has been called.
func (t *Trackable) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Len returns the number of notifiers currently tracking the object.
// Notifiers collected without being closed are not counted.
func (t *Trackable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, r := range t.registrations {
		if r.alive() {
			count++
		}
	}
	return count
}

// TrackedBy reports whether the notifier with the given ID is tracking the object.
func (t *Trackable) TrackedBy(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.registrations[id]
	return ok && r.alive()
}
