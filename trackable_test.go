package bosun

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrackableCloseDisconnects(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	n.Connect(Method(obj, (*widget).OnValue))
	n.Connect(Method(obj, (*widget).Peek))

	if obj.Len() != 1 {
		t.Fatalf("expected 1 registration, got %d", obj.Len())
	}

	obj.Close()
	_ = n.Broadcast(7)

	if len(log) != 0 {
		t.Errorf("expected no invocations after close, got %v", log)
	}
	if n.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", n.Len())
	}
	if !obj.Closed() {
		t.Error("expected object to report closed")
	}
	if obj.Len() != 0 {
		t.Errorf("expected no registrations after close, got %d", obj.Len())
	}
}

func TestTrackableCloseKeepsOtherListeners(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	gone := &widget{log: &log, scale: 2}
	kept := &widget{log: &log, scale: 3}

	n.Connect(appendTo(&log))
	n.Connect(Method(gone, (*widget).OnValue))
	n.Connect(Method(kept, (*widget).OnValue))
	n.Connect(Method(gone, (*widget).Peek))

	gone.Close()

	if n.Len() != 2 {
		t.Fatalf("expected 2 listeners, got %d", n.Len())
	}

	_ = n.Broadcast(1)
	if diff := cmp.Diff([]int{3, 1}, log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackableCloseIdempotent(_ *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	n.Connect(Method(obj, (*widget).OnValue))

	// Close multiple times should not panic
	obj.Close()
	obj.Close()
	obj.Close()
}

func TestTrackableMultipleNotifiers(t *testing.T) {
	n1 := New[int]()
	n2 := New[int]()
	defer n2.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	n1.Connect(Method(obj, (*widget).OnValue))
	n2.Connect(Method(obj, (*widget).OnValue))

	if !obj.TrackedBy(n1.ID()) || !obj.TrackedBy(n2.ID()) {
		t.Fatal("expected object to be tracked by both notifiers")
	}

	n1.Close()

	if obj.TrackedBy(n1.ID()) {
		t.Error("closed notifier should no longer be tracked")
	}
	if !obj.TrackedBy(n2.ID()) {
		t.Error("open notifier should still be tracked")
	}

	_ = n2.Broadcast(4)
	if diff := cmp.Diff([]int{4}, log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}

	obj.Close()
	if n2.Len() != 0 {
		t.Errorf("expected 0 listeners on n2, got %d", n2.Len())
	}
}

func TestTrackableNotifierClosedFirst(t *testing.T) {
	n := New[int]()

	var log []int
	obj := &widget{log: &log, scale: 1}
	n.Connect(Method(obj, (*widget).OnValue))
	n.Connect(Method(obj, (*widget).Peek))

	n.Close()

	if obj.Len() != 0 {
		t.Errorf("expected no registrations after notifier close, got %d", obj.Len())
	}

	// Closing the object afterwards has nothing to release.
	obj.Close()
	if len(log) != 0 {
		t.Errorf("expected no invocations, got %v", log)
	}
}

func TestTrackableUntrackOnLastDisconnect(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	c1 := n.Connect(Method(obj, (*widget).OnValue))
	c2 := n.Connect(Method(obj, (*widget).Peek))

	c1.Disconnect()
	if !obj.TrackedBy(n.ID()) {
		t.Error("object should stay tracked while a listener remains")
	}

	c2.Disconnect()
	if obj.TrackedBy(n.ID()) {
		t.Error("object should be untracked after its last listener is disconnected")
	}
}

func TestTrackableRegistrationPerNotifier(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	for range 3 {
		n.Connect(Method(obj, (*widget).OnValue))
	}

	if obj.Len() != 1 {
		t.Errorf("expected a single registration per notifier, got %d", obj.Len())
	}
	if n.Len() != 3 {
		t.Errorf("expected 3 listeners, got %d", n.Len())
	}
}

func TestConnectClosedTarget(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 1}
	obj.Close()

	conn := n.Connect(Method(obj, (*widget).OnValue))

	if conn == nil {
		t.Fatal("Connect returned nil")
	}
	if conn.Connected() {
		t.Error("connection to a closed target should not be connected")
	}
	if n.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", n.Len())
	}
	if obj.Len() != 0 {
		t.Errorf("expected no registrations, got %d", obj.Len())
	}
}

func TestTrackableClosedDuringBroadcast(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	obj := &widget{log: &log, scale: 10}

	// Connected first, fires last.
	n.Connect(Method(obj, (*widget).OnValue))
	n.Connect(Func(func(int) error {
		obj.Close()
		return nil
	}))

	_ = n.Broadcast(1)

	if len(log) != 0 {
		t.Errorf("listener bound to a closed object fired: %v", log)
	}
	if n.Len() != 1 {
		t.Errorf("expected 1 listener, got %d", n.Len())
	}
}

// panel embeds widget, so a *panel and its &panel.widget share one Trackable.
type panel struct {
	widget
	hits *[]string
}

func (p *panel) OnPanel(int) error {
	*p.hits = append(*p.hits, "panel")
	return nil
}

func newPanel(log *[]int, hits *[]string) *panel {
	return &panel{widget: widget{log: log, scale: 1}, hits: hits}
}

func TestTrackableSharedByEmbeddedTargets(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	var hits []string
	p := newPanel(&log, &hits)

	n.Connect(Method(p, (*panel).OnPanel))
	n.Connect(Method(&p.widget, (*widget).OnValue))

	if got := n.Stats(); got.Targets != 2 || got.Trackable != 1 {
		t.Fatalf("expected 2 targets sharing 1 trackable, got %+v", got)
	}

	p.Close()
	_ = n.Broadcast(1)

	if len(log) != 0 || len(hits) != 0 {
		t.Errorf("listeners bound to a closed object fired: log=%v hits=%v", log, hits)
	}
	if n.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", n.Len())
	}
}

func TestTrackableSharedAfterDisconnectTarget(t *testing.T) {
	n := New[int]()
	defer n.Close()

	var log []int
	var hits []string
	p := newPanel(&log, &hits)

	n.Connect(Method(p, (*panel).OnPanel))
	n.Connect(Method(&p.widget, (*widget).OnValue))

	n.DisconnectTarget(p)

	if !p.TrackedBy(n.ID()) {
		t.Fatal("trackable should stay tracked while the embedded target is connected")
	}
	if n.Len() != 1 {
		t.Fatalf("expected 1 listener, got %d", n.Len())
	}

	p.Close()
	_ = n.Broadcast(1)

	if len(log) != 0 {
		t.Errorf("embedded target fired after close: %v", log)
	}
	if n.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", n.Len())
	}
}

func TestTrackablePrunesCollectedNotifier(t *testing.T) {
	var log []int
	obj := &widget{log: &log, scale: 1}

	func() {
		forgotten := New[int]()
		forgotten.Connect(Method(obj, (*widget).OnValue))
	}()

	for i := 0; i < 10 && obj.Len() != 0; i++ {
		runtime.GC()
	}
	if obj.Len() != 0 {
		t.Fatalf("collected notifier still counted, len=%d", obj.Len())
	}

	n := New[int]()
	defer n.Close()
	n.Connect(Method(obj, (*widget).OnValue))

	obj.mu.Lock()
	registrations := len(obj.registrations)
	obj.mu.Unlock()

	if registrations != 1 {
		t.Errorf("expected stale registration to be pruned, got %d registrations", registrations)
	}
	if !obj.TrackedBy(n.ID()) {
		t.Error("expected new notifier to track the object")
	}
}
