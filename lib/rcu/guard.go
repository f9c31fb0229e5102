package rcu

// Guard is a short-lived mutation handle returned by Update. It owns a
// private clone of the value that was current when the update began.
// The clone is mutated in place through Value and becomes the published
// value when Release is called.
//
// A Guard must be released (or discarded) by the goroutine that created
// it. Publication happens exactly once: further Release or Discard
// calls are no-ops.
type Guard[T any] struct {
	pending *T
	publish func(*T)
	abort   func()
}

func newGuard[T any](pending *T, publish func(*T), abort func()) *Guard[T] {
	return &Guard[T]{
		pending: pending,
		publish: publish,
		abort:   abort,
	}
}

// Value returns the private clone for in-place mutation. The clone is
// invisible to readers until Release.
func (g *Guard[T]) Value() *T {
	return g.pending
}

// Release publishes the clone as the new current value and retires the
// displaced one. There is no protection against two guards for the same
// slot releasing through different handles: the one that releases last
// wins the pointer, but both displaced values are correctly retired.
func (g *Guard[T]) Release() {
	if g.publish == nil {
		return
	}
	publish := g.publish
	g.publish = nil
	g.abort = nil
	publish(g.pending)
}

// Discard abandons the update without publishing. The clone is dropped
// and readers keep observing the value that was current before Update.
func (g *Guard[T]) Discard() {
	if g.publish == nil {
		return
	}
	g.publish = nil
	if g.abort != nil {
		abort := g.abort
		g.abort = nil
		abort()
	}
	g.pending = nil
}
