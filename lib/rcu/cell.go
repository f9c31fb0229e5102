package rcu

import (
	"sync"

	"github.com/unguarded/rcu/lib/rcu/internal"
)

// --------------------------------------------------------------------------
// Cell (exclusive, eager retire)
// --------------------------------------------------------------------------

// Cell is the exclusive-ownership eager-retire container: one handle,
// one goroutine, no reference counting and no atomics. Because the type
// is held exclusively by contract, Clean can always reclaim the whole
// retirement store.
//
// Thread-safety: a Cell must only be used by a single goroutine.
type Cell[T any] struct {
	slot *internal.Slot[T]
	h    internal.Handle
	cfg  config[T]
}

// NewCell creates a Cell holding value.
func NewCell[T any](value T, opts ...Option[T]) *Cell[T] {
	cfg := newConfig(opts)
	slot := internal.NewSlot(&value, internal.NewPlainCell[T](nil),
		internal.NoCounter{}, internal.NoopLocker{}, cfg.onRetire)
	return &Cell[T]{slot: slot, cfg: cfg}
}

// Deref returns a pointer to the current value.
func (c *Cell[T]) Deref() *T {
	return c.slot.Read(&c.h)
}

// Update begins a mutation; see Pointer.Update.
func (c *Cell[T]) Update() *Guard[T] {
	pending := c.cfg.clone(c.slot.Read(&c.h))
	return newGuard(pending, c.slot.Publish, nil)
}

// Clean reclaims all retired values. Exclusive ownership proves that no
// borrow can be outstanding through any other handle, so the retirement
// store is always cleared.
func (c *Cell[T]) Clean() {
	c.slot.Clean(&c.h)
}

// Retired reports the size of the retirement store.
func (c *Cell[T]) Retired() int {
	return c.slot.Retired()
}

// Set replaces the current value in place, without the clone-and-publish
// cycle, and reclaims the retirement store first. Exclusive access makes
// the shortcut safe: no reference to the old value can exist elsewhere.
func (c *Cell[T]) Set(value T) {
	c.slot.Clean(&c.h)
	*c.slot.Current() = value
}

// --------------------------------------------------------------------------
// SharedCell (shared single-thread, eager retire)
// --------------------------------------------------------------------------

// SharedCell is the shared-single-thread eager-retire container:
// multiple handles created via Clone alias one slot on one goroutine.
// Borrow and owner counts are plain integers.
//
// Thread-safety: a SharedCell and all its clones must stay on a single
// goroutine. Use SyncCell to share across goroutines.
type SharedCell[T any] struct {
	slot   *internal.Slot[T]
	owners internal.Counter
	h      internal.Handle
	cfg    config[T]
}

// NewSharedCell creates a SharedCell holding value.
func NewSharedCell[T any](value T, opts ...Option[T]) *SharedCell[T] {
	cfg := newConfig(opts)
	slot := internal.NewSlot(&value, internal.NewPlainCell[T](nil),
		internal.NewPlainCounter(), internal.NoopLocker{}, cfg.onRetire)
	owners := internal.NewPlainCounter()
	owners.Inc()
	return &SharedCell[T]{slot: slot, owners: owners, cfg: cfg}
}

// Clone returns a new handle aliasing the same slot, with fresh borrow
// state.
func (s *SharedCell[T]) Clone() *SharedCell[T] {
	s.owners.Inc()
	return &SharedCell[T]{slot: s.slot, owners: s.owners, cfg: s.cfg}
}

// Deref returns a pointer to the current value.
func (s *SharedCell[T]) Deref() *T {
	return s.slot.Read(&s.h)
}

// Update begins a mutation; see Pointer.Update.
func (s *SharedCell[T]) Update() *Guard[T] {
	pending := s.cfg.clone(s.slot.Read(&s.h))
	return newGuard(pending, s.slot.Publish, nil)
}

// Clean drops this handle's borrow and reclaims the retirement store
// once no clone holds a borrow either; otherwise it is a no-op.
func (s *SharedCell[T]) Clean() {
	s.slot.Clean(&s.h)
}

// Retired reports the size of the retirement store.
func (s *SharedCell[T]) Retired() int {
	return s.slot.Retired()
}

// Handles reports how many handles alias the slot.
func (s *SharedCell[T]) Handles() int {
	return int(s.owners.Value())
}

// Close releases this handle: its borrow is dropped (running Clean) and
// it no longer counts as an owner. The handle must not be used after
// Close.
func (s *SharedCell[T]) Close() {
	s.slot.Clean(&s.h)
	s.owners.Dec()
}

// --------------------------------------------------------------------------
// SyncCell (shared multi-thread, eager retire)
// --------------------------------------------------------------------------

// SyncCell is the shared-multi-thread eager-retire container. The
// current pointer is published with release ordering and loaded with
// acquire ordering, the borrow count is a striped concurrent counter,
// and retirement-store appends are mutex-guarded so that two guards
// releasing concurrently through different handles both retire their
// displaced values.
//
// Thread-safety: distinct handles (created via Clone) may be used from
// distinct goroutines concurrently. A single handle must not be shared.
type SyncCell[T any] struct {
	slot   *internal.Slot[T]
	owners internal.Counter
	h      internal.Handle
	cfg    config[T]
}

// NewSyncCell creates a SyncCell holding value.
func NewSyncCell[T any](value T, opts ...Option[T]) *SyncCell[T] {
	cfg := newConfig(opts)
	slot := internal.NewSlot(&value, internal.NewAtomicCell[T](nil),
		internal.NewStripedCounter(), &sync.Mutex{}, cfg.onRetire)
	owners := internal.NewAtomicCounter()
	owners.Inc()
	return &SyncCell[T]{slot: slot, owners: owners, cfg: cfg}
}

// Clone returns a new handle aliasing the same slot, with fresh borrow
// state. The new handle may be handed to another goroutine.
func (s *SyncCell[T]) Clone() *SyncCell[T] {
	s.owners.Inc()
	return &SyncCell[T]{slot: s.slot, owners: s.owners, cfg: s.cfg}
}

// Deref returns a pointer to the current value (single acquire load).
func (s *SyncCell[T]) Deref() *T {
	return s.slot.Read(&s.h)
}

// Update begins a mutation; see Pointer.Update.
func (s *SyncCell[T]) Update() *Guard[T] {
	pending := s.cfg.clone(s.slot.Read(&s.h))
	return newGuard(pending, s.slot.Publish, nil)
}

// Clean drops this handle's borrow and reclaims the retirement store
// once the slot-wide borrow count is zero; otherwise it is a no-op.
func (s *SyncCell[T]) Clean() {
	s.slot.Clean(&s.h)
}

// Retired reports the size of the retirement store.
func (s *SyncCell[T]) Retired() int {
	return s.slot.Retired()
}

// Handles reports how many handles alias the slot.
func (s *SyncCell[T]) Handles() int {
	return int(s.owners.Value())
}

// Close releases this handle; see SharedCell.Close.
func (s *SyncCell[T]) Close() {
	s.slot.Clean(&s.h)
	s.owners.Dec()
}
