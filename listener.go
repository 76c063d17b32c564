package bosun

// Listener wraps one callable target under the signature func(T) error.
// A Listener is either a plain function or a method bound to a specific object.
// Listeners are immutable values and may be copied freely.
//
// A method Listener does not keep its object alive in any meaningful sense: if the
// object is closed while the Listener is still reachable outside a Notifier, invoking
// it is the caller's mistake. Objects that embed Trackable are protected when the
// Listener is connected to a Notifier.
type Listener[T any] struct {
	invoke  func(T) error
	target  any
	tracker *Trackable
}

// Func builds a Listener from a plain function. It has no target and is not trackable.
func Func[T any](fn func(T) error) Listener[T] {
	if fn == nil {
		panic("bosun: nil listener function")
	}
	return Listener[T]{invoke: fn}
}

// Method builds a Listener bound to a pointer-receiver method of obj, given as a
// method expression:
//
//	bosun.Method(w, (*Widget).OnValue)
func Method[O, T any](obj *O, method func(*O, T) error) Listener[T] {
	if obj == nil {
		panic("bosun: nil listener object")
	}
	if method == nil {
		panic("bosun: nil listener method")
	}
	return Listener[T]{
		invoke:  func(v T) error { return method(obj, v) },
		target:  obj,
		tracker: trackerOf(obj),
	}
}

// ConstMethod builds a Listener bound to a value-receiver method of obj. The
// receiver is read through obj on every call, so it observes the object's current
// state without being able to modify it:
//
//	bosun.ConstMethod(p, Point.Print)
//
// Types that embed Trackable must not be copied, so bind their value-receiver
// methods with Method and a pointer method expression instead: (*Widget).Peek.
func ConstMethod[O, T any](obj *O, method func(O, T) error) Listener[T] {
	if obj == nil {
		panic("bosun: nil listener object")
	}
	if method == nil {
		panic("bosun: nil listener method")
	}
	return Listener[T]{
		invoke:  func(v T) error { return method(*obj, v) },
		target:  obj,
		tracker: trackerOf(obj),
	}
}

// trackerOf returns the Trackable embedded in obj, or nil.
func trackerOf(obj any) *Trackable {
	t, ok := obj.(Tracked)
	if !ok {
		return nil
	}
	return t.tracking()
}

// Invoke calls the wrapped function or method with v.
func (l Listener[T]) Invoke(v T) error {
	return l.invoke(v)
}

// Valid reports whether l wraps a callable. The zero Listener is not valid.
func (l Listener[T]) Valid() bool { return l.invoke != nil }

// IsTrackable reports whether l is bound to an object that embeds Trackable.
func (l Listener[T]) IsTrackable() bool { return l.tracker != nil }

// HasTarget reports whether l is bound to an object.
func (l Listener[T]) HasTarget() bool { return l.target != nil }

// Target returns the identity of the bound object, or nil for plain functions.
func (l Listener[T]) Target() any { return l.target }

// SameTarget reports whether l and other are bound to the same object.
// Plain functions never share a target.
func (l Listener[T]) SameTarget(other Listener[T]) bool {
	return l.target != nil && l.target == other.target
}
