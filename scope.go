package bosun

import "sync"

// Scope ties many connections to a single lifetime.
// Call Close() to disconnect everything added to it.
//
// A Scope accepts connections from notifiers of any signature:
//
//	var scope bosun.Scope
//	scope.Add(resized.Connect(bosun.Method(v, (*View).OnResize)))
//	scope.Add(closed.Connect(bosun.Method(v, (*View).OnClose)))
//	defer scope.Close()
//
// The zero value is ready to use.
type Scope struct {
	handles []Disconnector
	closed  bool
	mu      sync.Mutex
}

// Add puts d under the scope's control. If the scope is already closed, d is
// disconnected immediately. Nil handles are ignored.
func (s *Scope) Add(d Disconnector) {
	if d == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d.Disconnect()
		return
	}
	s.handles = append(s.handles, d)
	s.mu.Unlock()
}

// Len returns the number of handles held by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Close disconnects every handle added to the scope, most recent first.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return // Already closed
	}
	s.closed = true
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for i := len(handles) - 1; i >= 0; i-- {
		handles[i].Disconnect()
	}
}
