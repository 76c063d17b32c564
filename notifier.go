package bosun

import (
	"container/list"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"
)

// Notifier broadcasts values of type T to its connected listeners.
//
// Listeners fire in reverse connection order: the most recently connected
// listener fires first. A Notifier must be created with New.
type Notifier[T any] struct {
	listeners *list.List         // of *entry[T]
	targets   map[any]int        // listeners per Listener.target
	trackers  map[*Trackable]int // listeners per Listener.tracker
	self      weak.Pointer[Notifier[T]]
	logger    *zap.Logger
	cfg       config
	id        uint64
	closed    bool
	mu        sync.Mutex
}

// entry is one connected listener.
type entry[T any] struct {
	listener Listener[T]
	element  *list.Element
	live     atomic.Bool // false once disconnected
}

// New creates a Notifier with optional configuration.
func New[T any](opts ...Option) *Notifier[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	n := &Notifier[T]{
		listeners: list.New(),
		targets:   make(map[any]int),
		trackers:  make(map[*Trackable]int),
		cfg:       cfg,
		id:        nextNotifierID(),
	}
	n.self = weak.Make(n)
	n.logger = cfg.logger.With(zap.String("notifier", cfg.name), zap.Uint64("id", n.id))
	return n
}

// ID returns the notifier's process-wide unique identity.
func (n *Notifier[T]) ID() uint64 {
	return n.id
}

// Connect adds l to the notifier and returns a Connection that disconnects it.
// If l is bound to a Trackable object, the object tracks this notifier until the
// last listener sharing its Trackable is disconnected. An outer struct and the
// embedded struct holding the Trackable share it.
//
// Connecting the zero Listener, connecting to a closed notifier, or connecting a
// listener whose trackable object is already closed does nothing and returns a
// Connection that is not connected.
func (n *Notifier[T]) Connect(l Listener[T]) *Connection[T] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		n.logger.Warn("connect on closed notifier")
		return &Connection[T]{}
	}
	if !l.Valid() {
		n.logger.Warn("connect with invalid listener")
		return &Connection[T]{}
	}

	if l.tracker != nil && !l.tracker.track(n.id, n.registration(l.tracker)) {
		n.logger.Warn("connect to closed target", targetField(l.target))
		return &Connection[T]{}
	}

	if l.target != nil {
		n.targets[l.target]++
	}
	if l.tracker != nil {
		n.trackers[l.tracker]++
	}

	e := &entry[T]{listener: l}
	e.element = n.listeners.PushFront(e)
	e.live.Store(true)

	n.logger.Debug("listener connected",
		targetField(l.target),
		zap.Bool("trackable", l.IsTrackable()),
		zap.Int("listeners", n.listeners.Len()),
	)
	n.cfg.metrics.connected(n.cfg.name)

	return &Connection[T]{notifier: n.self, entry: e}
}

// registration builds the back-reference a Trackable holds for this notifier.
// It refers to the notifier weakly so a forgotten notifier can still be collected.
func (n *Notifier[T]) registration(tracker *Trackable) registration {
	self := n.self
	return registration{
		release: func() {
			if owner := self.Value(); owner != nil {
				owner.release(tracker)
			}
		},
		alive: func() bool {
			return self.Value() != nil
		},
	}
}

// Broadcast invokes every connected listener with v, in order, on the calling
// goroutine. The first listener error stops the broadcast and is returned.
//
// Listeners may connect and disconnect during a broadcast. A listener disconnected
// before its turn is skipped; a listener connected during the broadcast is not
// invoked until the next one. Broadcasting on a closed notifier does nothing.
func (n *Notifier[T]) Broadcast(v T) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	snapshot := make([]*entry[T], 0, n.listeners.Len())
	for el := n.listeners.Front(); el != nil; el = el.Next() {
		snapshot = append(snapshot, el.Value.(*entry[T])) //nolint:errcheck // list holds only *entry[T]
	}
	n.mu.Unlock()

	for _, e := range snapshot {
		if !e.live.Load() {
			continue
		}
		if err := n.invoke(e.listener, v); err != nil {
			n.logger.Debug("broadcast aborted", targetField(e.listener.target), zap.Error(err))
			n.cfg.metrics.broadcast(n.cfg.name, true)
			return err
		}
	}

	n.cfg.metrics.broadcast(n.cfg.name, false)
	return nil
}

// Notify is an alias for Broadcast.
func (n *Notifier[T]) Notify(v T) error {
	return n.Broadcast(v)
}

func (n *Notifier[T]) invoke(l Listener[T], v T) (err error) {
	if n.cfg.panicRecovery {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
	}
	return l.Invoke(v)
}

// disconnect removes a single entry. No-op if it is already gone.
func (n *Notifier[T]) disconnect(e *entry[T]) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !e.live.Load() {
		return
	}
	n.remove(e)

	n.logger.Debug("listener disconnected",
		targetField(e.listener.target),
		zap.String("reason", ReasonConnection),
		zap.Int("listeners", n.listeners.Len()),
	)
	n.cfg.metrics.disconnected(n.cfg.name, ReasonConnection, 1)
}

// remove unlinks a live entry and untracks its Trackable when no other listener
// shares it. Must be called while holding n.mu.
func (n *Notifier[T]) remove(e *entry[T]) {
	e.live.Store(false)
	n.listeners.Remove(e.element)

	if target := e.listener.target; target != nil {
		if n.targets[target]--; n.targets[target] == 0 {
			delete(n.targets, target)
		}
	}
	if tracker := e.listener.tracker; tracker != nil {
		if n.trackers[tracker]--; n.trackers[tracker] == 0 {
			delete(n.trackers, tracker)
			tracker.untrack(n.id)
		}
	}
}

// removeIf removes every entry whose listener matches. Must be called while holding n.mu.
func (n *Notifier[T]) removeIf(match func(Listener[T]) bool) int {
	removed := 0
	for el := n.listeners.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[T]) //nolint:errcheck // list holds only *entry[T]
		if match(e.listener) {
			n.remove(e)
			removed++
		}
		el = next
	}
	return removed
}

// release drops every listener whose object shares tracker. Called when the
// Trackable is closed.
func (n *Notifier[T]) release(tracker *Trackable) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.trackers[tracker]; !ok {
		return
	}
	removed := n.removeIf(func(l Listener[T]) bool { return l.tracker == tracker })

	n.logger.Debug("target released",
		zap.Int("removed", removed),
		zap.Int("listeners", n.listeners.Len()),
	)
	n.cfg.metrics.disconnected(n.cfg.name, ReasonRelease, removed)
}

// DisconnectTarget removes every listener bound to target, the object pointer
// given to Method or ConstMethod. A nil target is ignored.
//
// Only listeners bound to exactly this pointer are removed: listeners bound to an
// embedded struct sharing the same Trackable stay connected, and the Trackable
// keeps tracking this notifier until they are gone too.
func (n *Notifier[T]) DisconnectTarget(target any) {
	if target == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.targets[target]; !ok {
		return
	}
	removed := n.removeIf(func(l Listener[T]) bool { return l.target == target })

	n.logger.Debug("target disconnected",
		targetField(target),
		zap.Int("removed", removed),
		zap.Int("listeners", n.listeners.Len()),
	)
	n.cfg.metrics.disconnected(n.cfg.name, ReasonTarget, removed)
}

// DisconnectAll removes every listener. Every trackable object bound by a removed
// listener stops tracking this notifier. The notifier remains usable.
func (n *Notifier[T]) DisconnectAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset(ReasonAll)
}

// Close disconnects every listener and stops every trackable object from
// tracking this notifier. Afterwards Connect returns unconnected Connections and
// Broadcast does nothing. Safe to call multiple times; subsequent calls are no-ops.
func (n *Notifier[T]) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	n.reset(ReasonClose)
}

// reset drops all entries. Must be called while holding n.mu.
func (n *Notifier[T]) reset(reason string) {
	removed := n.listeners.Len()
	for el := n.listeners.Front(); el != nil; el = el.Next() {
		el.Value.(*entry[T]).live.Store(false) //nolint:errcheck // list holds only *entry[T]
	}
	for tracker := range n.trackers {
		tracker.untrack(n.id)
	}
	n.listeners.Init()
	clear(n.targets)
	clear(n.trackers)

	n.logger.Debug("listeners cleared", zap.String("reason", reason), zap.Int("removed", removed))
	n.cfg.metrics.disconnected(n.cfg.name, reason, removed)
}

// Len returns the number of connected listeners.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listeners.Len()
}

// Stats returns a snapshot of the notifier's listeners and targets.
func (n *Notifier[T]) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()

	return Stats{
		Listeners: n.listeners.Len(),
		Targets:   len(n.targets),
		Trackable: len(n.trackers),
	}
}

func targetField(target any) zap.Field {
	if target == nil {
		return zap.Skip()
	}
	return zap.String("target", fmt.Sprintf("%T", target))
}
