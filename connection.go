package bosun

import "weak"

// Connection represents one connected listener.
// Call Disconnect() to remove the listener and prevent further callbacks.
//
// A Connection does not keep its Notifier alive. Disconnecting after the Notifier
// was closed or collected does nothing.
type Connection[T any] struct {
	notifier weak.Pointer[Notifier[T]]
	entry    *entry[T]
}

// Disconnect removes the listener this Connection was issued for.
// Safe to call multiple times; subsequent calls are no-ops.
func (c *Connection[T]) Disconnect() {
	if c == nil || c.entry == nil {
		return
	}
	if n := c.notifier.Value(); n != nil {
		n.disconnect(c.entry)
	}
}

// Connected reports whether the listener is still connected.
func (c *Connection[T]) Connected() bool {
	if c == nil || c.entry == nil {
		return false
	}
	return c.entry.live.Load() && c.notifier.Value() != nil
}
