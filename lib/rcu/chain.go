package rcu

import (
	"github.com/unguarded/rcu/lib/rcu/internal"
)

// --------------------------------------------------------------------------
// Rcu (exclusive, version chain)
// --------------------------------------------------------------------------

// Rcu is the exclusive-ownership version-chain container. Updates push
// the new value onto a forward chain instead of replacing the head
// slot, so reads cost one extra indirection only while un-collapsed
// versions exist; Clean collapses the chain and restores direct access.
//
// Overlapping guards are tolerated with last-writer-wins semantics, the
// same policy as the eager-retire containers.
//
// Thread-safety: an Rcu must only be used by a single goroutine.
type Rcu[T any] struct {
	chain *internal.Chain[T]
	h     internal.Handle
	cfg   config[T]
}

// NewRcu creates an Rcu holding value.
func NewRcu[T any](value T, opts ...Option[T]) *Rcu[T] {
	cfg := newConfig(opts)
	chain := internal.NewChain(&value,
		internal.NewPlainCell[T](nil), internal.NewPlainCell[internal.Node[T]](nil),
		internal.NoCounter{}, internal.NoFlag{}, cfg.onRetire)
	return &Rcu[T]{chain: chain, cfg: cfg}
}

// Deref returns a pointer to the newest value.
func (r *Rcu[T]) Deref() *T {
	return r.chain.Read(&r.h)
}

// Update begins a mutation; see Pointer.Update.
func (r *Rcu[T]) Update() *Guard[T] {
	r.chain.BeginWrite()
	pending := r.cfg.clone(r.chain.Read(&r.h))
	return newGuard(pending, r.chain.Publish, r.chain.AbortWrite)
}

// Clean collapses the chain, reclaiming all superseded values.
func (r *Rcu[T]) Clean() {
	r.chain.Clean(&r.h)
}

// Retired reports how many superseded values the chain retains.
func (r *Rcu[T]) Retired() int {
	return r.chain.Retired()
}

// --------------------------------------------------------------------------
// SharedRcu (shared single-thread, version chain)
// --------------------------------------------------------------------------

// SharedRcu is the shared-single-thread version-chain container. Unlike
// the eager-retire containers it enforces a single in-flight update: a
// second Update while a guard is unreleased panics with an *Error of
// code RetCConcurrentUpdate, because two guards would mutate the same
// pending position of the chain.
//
// Thread-safety: a SharedRcu and all its clones must stay on a single
// goroutine. Use SyncRcu to share across goroutines.
type SharedRcu[T any] struct {
	chain  *internal.Chain[T]
	owners internal.Counter
	h      internal.Handle
	cfg    config[T]
}

// NewSharedRcu creates a SharedRcu holding value.
func NewSharedRcu[T any](value T, opts ...Option[T]) *SharedRcu[T] {
	cfg := newConfig(opts)
	chain := internal.NewChain(&value,
		internal.NewPlainCell[T](nil), internal.NewPlainCell[internal.Node[T]](nil),
		internal.NewPlainCounter(), internal.NewPlainFlag(), cfg.onRetire)
	owners := internal.NewPlainCounter()
	owners.Inc()
	return &SharedRcu[T]{chain: chain, owners: owners, cfg: cfg}
}

// Clone returns a new handle aliasing the same chain, with fresh borrow
// state.
func (r *SharedRcu[T]) Clone() *SharedRcu[T] {
	r.owners.Inc()
	return &SharedRcu[T]{chain: r.chain, owners: r.owners, cfg: r.cfg}
}

// Deref returns a pointer to the newest value.
func (r *SharedRcu[T]) Deref() *T {
	return r.chain.Read(&r.h)
}

// Update begins a mutation. Panics with RetCConcurrentUpdate if another
// guard for this chain is still unreleased.
func (r *SharedRcu[T]) Update() *Guard[T] {
	if r.chain.BeginWrite() {
		panic(NewError(RetCConcurrentUpdate, "update already in flight for this value"))
	}
	pending := r.cfg.clone(r.chain.Read(&r.h))
	return newGuard(pending, r.chain.Publish, r.chain.AbortWrite)
}

// Clean drops this handle's borrow and collapses the chain once no
// clone holds a borrow either; otherwise it is a no-op.
func (r *SharedRcu[T]) Clean() {
	r.chain.Clean(&r.h)
}

// Retired reports how many superseded values the chain retains.
func (r *SharedRcu[T]) Retired() int {
	return r.chain.Retired()
}

// Handles reports how many handles alias the chain.
func (r *SharedRcu[T]) Handles() int {
	return int(r.owners.Value())
}

// Close releases this handle; see SharedCell.Close.
func (r *SharedRcu[T]) Close() {
	r.chain.Clean(&r.h)
	r.owners.Dec()
}

// --------------------------------------------------------------------------
// SyncRcu (shared multi-thread, version chain)
// --------------------------------------------------------------------------

// SyncRcu is the shared-multi-thread version-chain container. The
// forward link is published with release ordering and loaded with
// acquire ordering; the single-writer latch is an atomic swap, so of
// two racing Update calls exactly one panics with RetCConcurrentUpdate.
//
// Thread-safety: distinct handles (created via Clone) may be used from
// distinct goroutines concurrently. A single handle must not be shared.
type SyncRcu[T any] struct {
	chain  *internal.Chain[T]
	owners internal.Counter
	h      internal.Handle
	cfg    config[T]
}

// NewSyncRcu creates a SyncRcu holding value.
func NewSyncRcu[T any](value T, opts ...Option[T]) *SyncRcu[T] {
	cfg := newConfig(opts)
	chain := internal.NewChain(&value,
		internal.NewAtomicCell[T](nil), internal.NewAtomicCell[internal.Node[T]](nil),
		internal.NewStripedCounter(), internal.NewAtomicFlag(), cfg.onRetire)
	owners := internal.NewAtomicCounter()
	owners.Inc()
	return &SyncRcu[T]{chain: chain, owners: owners, cfg: cfg}
}

// Clone returns a new handle aliasing the same chain, with fresh borrow
// state. The new handle may be handed to another goroutine.
func (r *SyncRcu[T]) Clone() *SyncRcu[T] {
	r.owners.Inc()
	return &SyncRcu[T]{chain: r.chain, owners: r.owners, cfg: r.cfg}
}

// Deref returns a pointer to the newest value (at most two acquire
// loads: the forward link, then the head slot if Compact).
func (r *SyncRcu[T]) Deref() *T {
	return r.chain.Read(&r.h)
}

// Update begins a mutation. Panics with RetCConcurrentUpdate if another
// guard for this chain is still unreleased, on this or any other
// goroutine.
func (r *SyncRcu[T]) Update() *Guard[T] {
	if r.chain.BeginWrite() {
		panic(NewError(RetCConcurrentUpdate, "update already in flight for this value"))
	}
	pending := r.cfg.clone(r.chain.Read(&r.h))
	return newGuard(pending, r.chain.Publish, r.chain.AbortWrite)
}

// Clean drops this handle's borrow and collapses the chain once the
// slot-wide borrow count is zero; otherwise it is a no-op.
func (r *SyncRcu[T]) Clean() {
	r.chain.Clean(&r.h)
}

// Retired reports how many superseded values the chain retains.
func (r *SyncRcu[T]) Retired() int {
	return r.chain.Retired()
}

// Handles reports how many handles alias the chain.
func (r *SyncRcu[T]) Handles() int {
	return int(r.owners.Value())
}

// Close releases this handle; see SharedCell.Close.
func (r *SyncRcu[T]) Close() {
	r.chain.Clean(&r.h)
	r.owners.Dec()
}
