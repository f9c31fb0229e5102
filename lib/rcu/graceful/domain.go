package graceful

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unguarded/rcu/lib/rcu"
)

// --------------------------------------------------------------------------
// Generations
// --------------------------------------------------------------------------

// generation is one epoch of retirement bookkeeping. Its reference
// count is held by: the domain (while the generation is current), the
// predecessor generation (via next), and every Grace token that pinned
// it. When the count reaches zero its retired values are reclaimed and
// its reference on the successor is dropped, cascading reclamation in
// creation order.
type generation struct {
	refs    atomic.Int64
	retired []func() // deferred reclamation hooks, appended under the domain lock while current
	next    *generation
}

// --------------------------------------------------------------------------
// Domain
// --------------------------------------------------------------------------

// Domain is a reclamation domain: the generation chain, the
// chain-advance lock serializing updates, and the domain's metrics. All
// containers created against one Domain share its grace periods.
//
// Thread-safety: all Domain methods are safe for concurrent use.
type Domain struct {
	name string

	mu      sync.Mutex // chain-advance lock; guards current and closed
	current *generation
	closed  bool

	updates        *metrics.Counter
	reclaimedVals  *metrics.Counter
	reclaimedGens  *metrics.Counter
	acquiredGraces *metrics.Counter
}

// DomainOption configures a Domain during construction.
type DomainOption func(*Domain)

// WithName sets the domain label carried by the domain's metrics.
// Domains sharing a name share metric series.
func WithName(name string) DomainOption {
	return func(d *Domain) {
		d.name = name
	}
}

// NewDomain creates a reclamation domain with a single empty current
// generation.
func NewDomain(opts ...DomainOption) *Domain {
	d := &Domain{name: "default"}
	for _, opt := range opts {
		opt(d)
	}

	gen := &generation{}
	gen.refs.Store(1) // the domain's own pin on the current generation
	d.current = gen

	d.updates = metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_updates_total{domain=%q}`, d.name))
	d.reclaimedVals = metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_reclaimed_values_total{domain=%q}`, d.name))
	d.reclaimedGens = metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_reclaimed_generations_total{domain=%q}`, d.name))
	d.acquiredGraces = metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_grace_tokens_total{domain=%q}`, d.name))

	return d
}

// Acquire pins the current generation and returns the grace token. The
// token guarantees that no value retired from this point on, in this
// domain, is reclaimed before the token is released. Intended to be
// held across a batch of reads, not acquired per read.
//
// Panics with RetCDomainClosed if the domain has been closed.
func (d *Domain) Acquire() *Grace {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		panic(rcu.NewError(rcu.RetCDomainClosed, "grace token requested from a closed domain"))
	}
	gen := d.current
	gen.refs.Add(1)
	d.mu.Unlock()

	d.acquiredGraces.Inc()
	return &Grace{domain: d, gen: gen}
}

// Close drops the domain's pin on the current generation, letting
// pending reclamation drain once all outstanding tokens are released.
// Acquire panics afterwards; closing twice is a no-op.
func (d *Domain) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	cur := d.current
	d.current = nil
	d.mu.Unlock()

	d.release(cur)
}

// release drops one reference on gen. When the count reaches zero it
// reclaims gen and cascades to its successors. Reclamation of a
// generation runs exactly once: the last releaser observes zero.
func (d *Domain) release(gen *generation) {
	for gen != nil {
		if gen.refs.Add(-1) != 0 {
			return
		}
		for _, free := range gen.retired {
			free()
		}
		d.reclaimedVals.Add(len(gen.retired))
		d.reclaimedGens.Inc()

		next := gen.next
		gen.retired = nil
		gen.next = nil
		gen = next
	}
}

// --------------------------------------------------------------------------
// Grace
// --------------------------------------------------------------------------

// Grace is a grace token: a strong reference to the generation that was
// current when the token was acquired. While the token is alive, that
// generation and every later one stay unreclaimed.
//
// Thread-safety: a Grace belongs to the goroutine that acquired it;
// acquire a token per goroutine instead of sharing one.
type Grace struct {
	domain *Domain
	gen    *generation
}

// Release unpins the generation. Idempotent; the token must not be used
// for reads afterwards.
func (g *Grace) Release() {
	if g.gen == nil {
		return
	}
	gen := g.gen
	g.gen = nil
	g.domain.release(gen)
}
