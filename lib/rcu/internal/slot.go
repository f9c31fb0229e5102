package internal

import "sync"

// Handle is the per-handle half of the borrow tracker: whether this
// handle currently holds a read borrow into its slot. A Handle belongs
// to exactly one container handle and is only touched by the goroutine
// using that handle, so a plain bool suffices in every ownership model;
// only the slot-wide Counter is shared.
type Handle struct {
	borrowed bool
}

// Slot owns the current value of an eager-retire container plus the
// retirement store of superseded values.
//
// Invariants: current is non-nil for the lifetime of the slot; every
// retired value is reclaimed exactly once; the sum of Handle flags
// across all handles referencing the slot equals the borrow counter.
type Slot[T any] struct {
	current  Cell[T]
	borrows  Counter
	mu       sync.Locker // guards retired; no-op for single-goroutine models
	retired  []*T
	onRetire func(*T)
}

// NewSlot creates a slot holding value, composed with the given
// ownership discipline.
func NewSlot[T any](value *T, current Cell[T], borrows Counter, mu sync.Locker, onRetire func(*T)) *Slot[T] {
	current.Store(value)
	return &Slot[T]{
		current:  current,
		borrows:  borrows,
		mu:       mu,
		onRetire: onRetire,
	}
}

// Read returns the current value and records the borrow. A handle that
// has already borrowed since its last Clean is not counted again.
func (s *Slot[T]) Read(h *Handle) *T {
	if !h.borrowed {
		h.borrowed = true
		s.borrows.Inc()
	}
	return s.current.Load()
}

// Current returns the current value without borrow bookkeeping. Only
// valid when the caller holds the slot exclusively.
func (s *Slot[T]) Current() *T {
	return s.current.Load()
}

// Publish swaps the current value for p and retires the displaced one.
// Two publishes racing through different handles are last-writer-wins
// on the pointer; both displaced values end up in the retirement store.
func (s *Slot[T]) Publish(p *T) {
	old := s.current.Swap(p)
	s.mu.Lock()
	s.retired = append(s.retired, old)
	s.mu.Unlock()
}

// Clean drops this handle's borrow and, if the slot-wide count reaches
// zero, reclaims the retirement store. The current value is never
// reclaimed. With borrows outstanding the store is left untouched.
func (s *Slot[T]) Clean(h *Handle) {
	if h.borrowed {
		h.borrowed = false
		s.borrows.Dec()
	}
	if s.borrows.Value() != 0 {
		return
	}
	s.mu.Lock()
	retired := s.retired
	s.retired = nil
	s.mu.Unlock()
	if s.onRetire != nil {
		for _, p := range retired {
			s.onRetire(p)
		}
	}
}

// Retired reports the size of the retirement store.
func (s *Slot[T]) Retired() int {
	s.mu.Lock()
	n := len(s.retired)
	s.mu.Unlock()
	return n
}
