package graceful

import (
	"sync/atomic"

	"github.com/unguarded/rcu/lib/rcu"
)

// Rcu is a grace-period RCU container. Reads cost a single
// acquire-ordered pointer load but require a live Grace token from the
// container's Domain; updates clone-modify-publish and defer
// reclamation of the displaced value to the domain's generation chain.
//
// Thread-safety: an *Rcu may be shared freely across goroutines; Read
// and Update are safe to call concurrently. There is no Clone: sharing
// the pointer is the sharing model.
type Rcu[T any] struct {
	domain   *Domain
	current  atomic.Pointer[T]
	clone    rcu.CloneFunc[T]
	onRetire rcu.RetireFunc[T]
}

// Option configures an Rcu during construction.
type Option[T any] func(*Rcu[T])

// WithClone sets the duplication function used by Update. The default
// performs a shallow value copy.
func WithClone[T any](fn rcu.CloneFunc[T]) Option[T] {
	return func(r *Rcu[T]) {
		r.clone = fn
	}
}

// WithOnRetire registers a hook invoked once per superseded value when
// its generation is reclaimed.
func WithOnRetire[T any](fn rcu.RetireFunc[T]) Option[T] {
	return func(r *Rcu[T]) {
		r.onRetire = fn
	}
}

// New creates an Rcu holding value, attached to the given domain.
func New[T any](d *Domain, value T, opts ...Option[T]) *Rcu[T] {
	r := &Rcu[T]{
		domain: d,
		clone: func(p *T) *T {
			cp := *p
			return &cp
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&value)
	return r
}

// Read returns the current value. The grace token is what makes the
// returned pointer safe: as long as it is alive, nothing the pointer
// could refer to is reclaimed. The token itself is not touched, so a read
// is one atomic load.
//
// Panics with RetCGraceReleased if the token has been released.
func (r *Rcu[T]) Read(g *Grace) *T {
	if g == nil || g.gen == nil {
		panic(rcu.NewError(rcu.RetCGraceReleased, "read through a released grace token"))
	}
	return r.current.Load()
}

// Update clones the current value, applies f to the clone, and
// publishes the result. The displaced value is recorded in the
// generation being sealed and reclaimed only when every token that
// could have observed it is gone. Updates serialize on the domain's
// chain-advance lock; f itself runs before the lock is taken, so two
// concurrent updates may clone the same base (last publish wins).
//
// Panics with RetCDomainClosed if the domain has been closed.
func (r *Rcu[T]) Update(f func(*T)) {
	g := r.domain.Acquire()
	pending := r.clone(r.Read(g))
	f(pending)

	d := r.domain
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		g.Release()
		panic(rcu.NewError(rcu.RetCDomainClosed, "update on a closed domain"))
	}

	old := r.current.Swap(pending)
	sealed := d.current
	if r.onRetire != nil {
		hook := r.onRetire
		sealed.retired = append(sealed.retired, func() { hook(old) })
	}

	// Seal the current generation and advance. The fresh generation is
	// born with two references: the domain's pin and the sealed
	// generation's strong reference, which enforces creation-order
	// reclamation.
	next := &generation{}
	next.refs.Store(2)
	sealed.next = next
	d.current = next
	d.mu.Unlock()

	d.updates.Inc()

	// The sealed generation loses the domain's pin, then our transient
	// token's. With no other tokens outstanding it reclaims right here.
	d.release(sealed)
	g.Release()
}
