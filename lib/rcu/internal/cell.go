package internal

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Pointer Cells
// --------------------------------------------------------------------------

// Cell is a single publishable pointer slot. Implementations differ in
// whether loads and stores synchronize: AtomicCell pairs release-ordered
// publication with acquire-ordered loads so a reader that observes a new
// pointer also observes the fully initialized value behind it.
type Cell[T any] interface {
	Load() *T
	Store(p *T)
	Swap(p *T) *T
}

// PlainCell is a Cell for the single-goroutine ownership models. No
// synchronization beyond program order.
type PlainCell[T any] struct {
	p *T
}

func NewPlainCell[T any](p *T) *PlainCell[T] {
	return &PlainCell[T]{p: p}
}

func (c *PlainCell[T]) Load() *T { return c.p }

func (c *PlainCell[T]) Store(p *T) { c.p = p }

func (c *PlainCell[T]) Swap(p *T) *T {
	old := c.p
	c.p = p
	return old
}

// AtomicCell is a Cell for the multi-thread ownership model.
type AtomicCell[T any] struct {
	p atomic.Pointer[T]
}

func NewAtomicCell[T any](p *T) *AtomicCell[T] {
	c := &AtomicCell[T]{}
	c.p.Store(p)
	return c
}

func (c *AtomicCell[T]) Load() *T { return c.p.Load() }

func (c *AtomicCell[T]) Store(p *T) { c.p.Store(p) }

func (c *AtomicCell[T]) Swap(p *T) *T { return c.p.Swap(p) }

// --------------------------------------------------------------------------
// Borrow / Owner Counters
// --------------------------------------------------------------------------

// Counter is the slot-wide tally of outstanding borrows (or of live
// handles, for the shared ownership models).
type Counter interface {
	Inc()
	Dec()
	Value() int64
}

// NoCounter is the Counter of the exclusive ownership model: single
// handle, single goroutine, so there is never an unaccounted borrow and
// Value is always zero.
type NoCounter struct{}

func (NoCounter) Inc()         {}
func (NoCounter) Dec()         {}
func (NoCounter) Value() int64 { return 0 }

// PlainCounter is a non-atomic Counter for the shared-single-thread
// ownership model.
type PlainCounter struct {
	n int64
}

func NewPlainCounter() *PlainCounter { return &PlainCounter{} }

func (c *PlainCounter) Inc() { c.n++ }

func (c *PlainCounter) Dec() { c.n-- }

func (c *PlainCounter) Value() int64 { return c.n }

// StripedCounter is a Counter for the multi-thread ownership model,
// backed by a striped concurrent counter so that many reader goroutines
// incrementing through distinct handles do not contend on one cache
// line. Value sums the stripes and is only called on the Clean path.
type StripedCounter struct {
	c *xsync.Counter
}

func NewStripedCounter() *StripedCounter {
	return &StripedCounter{c: xsync.NewCounter()}
}

func (c *StripedCounter) Inc() { c.c.Inc() }

func (c *StripedCounter) Dec() { c.c.Dec() }

func (c *StripedCounter) Value() int64 { return c.c.Value() }

// AtomicCounter is a plain atomic Counter, used for owner counts where
// increments are rare and an exact cheap read matters more than
// contention-free updates.
type AtomicCounter struct {
	n atomic.Int64
}

func NewAtomicCounter() *AtomicCounter { return &AtomicCounter{} }

func (c *AtomicCounter) Inc() { c.n.Add(1) }

func (c *AtomicCounter) Dec() { c.n.Add(-1) }

func (c *AtomicCounter) Value() int64 { return c.n.Load() }

// --------------------------------------------------------------------------
// Single-Writer Flags
// --------------------------------------------------------------------------

// Flag is the single-writer latch of the version-chain strategy. Set
// latches the flag and reports whether it was already latched.
type Flag interface {
	Set() bool
	Clear()
}

// NoFlag is the Flag of the exclusive version-chain container, which
// tolerates overlapping guards with last-writer-wins semantics.
type NoFlag struct{}

func (NoFlag) Set() bool { return false }

func (NoFlag) Clear() {}

// PlainFlag is a non-atomic Flag for the shared-single-thread model.
type PlainFlag struct {
	b bool
}

func NewPlainFlag() *PlainFlag { return &PlainFlag{} }

func (f *PlainFlag) Set() bool {
	prev := f.b
	f.b = true
	return prev
}

func (f *PlainFlag) Clear() { f.b = false }

// AtomicFlag is an atomic Flag for the multi-thread model.
type AtomicFlag struct {
	b atomic.Bool
}

func NewAtomicFlag() *AtomicFlag { return &AtomicFlag{} }

func (f *AtomicFlag) Set() bool { return f.b.Swap(true) }

func (f *AtomicFlag) Clear() { f.b.Store(false) }

// --------------------------------------------------------------------------
// Lockers
// --------------------------------------------------------------------------

// NoopLocker replaces the retirement-store mutex in the
// single-goroutine ownership models.
type NoopLocker struct{}

func (NoopLocker) Lock() {}

func (NoopLocker) Unlock() {}
