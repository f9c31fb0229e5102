package internal

// Node is one link of a version chain. Nodes are immutable after
// publication: value never changes and next only ever points at older
// nodes.
type Node[T any] struct {
	value *T
	next  *Node[T]
}

// Chain is the version-chain engine. The container is Compact while the
// forward link is nil (single value, no indirection) and Chained after
// an update has pushed a newer value onto the link. Readers follow the
// link at most one step: the newest value is always the first node.
//
// The chain layout after n un-collapsed updates is
//
//	head(v0) -> link -> node(vn) -> node(vn-1) -> ... -> node(v1)
//
// where vn is current and everything else is retired-but-held.
type Chain[T any] struct {
	head     Cell[T]
	link     Cell[Node[T]]
	borrows  Counter
	writing  Flag
	onRetire func(*T)
}

// NewChain creates a Compact chain holding value, composed with the
// given ownership discipline.
func NewChain[T any](value *T, head Cell[T], link Cell[Node[T]], borrows Counter, writing Flag, onRetire func(*T)) *Chain[T] {
	head.Store(value)
	return &Chain[T]{
		head:     head,
		link:     link,
		borrows:  borrows,
		writing:  writing,
		onRetire: onRetire,
	}
}

// Read returns the newest value, following the forward link if the
// chain is not Compact, and records the borrow.
func (c *Chain[T]) Read(h *Handle) *T {
	if !h.borrowed {
		h.borrowed = true
		c.borrows.Inc()
	}
	if n := c.link.Load(); n != nil {
		return n.value
	}
	return c.head.Load()
}

// BeginWrite latches the single-writer flag and reports whether another
// update was already in flight. The caller must treat true as fatal.
func (c *Chain[T]) BeginWrite() bool {
	return c.writing.Set()
}

// AbortWrite releases the single-writer flag without publishing.
func (c *Chain[T]) AbortWrite() {
	c.writing.Clear()
}

// Publish pushes p as the newest chain node, preserving any older
// versions not yet collapsed, and releases the single-writer flag. The
// link store is the release-ordered publication point: a reader that
// observes the new node also observes its fully initialized value.
func (c *Chain[T]) Publish(p *T) {
	c.link.Store(&Node[T]{value: p, next: c.link.Load()})
	c.writing.Clear()
}

// Clean drops this handle's borrow and, if no borrow remains anywhere,
// collapses the chain: the head cell is repointed at the newest value,
// the link is cleared, and the displaced head value plus all older
// chained values are reclaimed. The container returns to Compact.
//
// Collapsing must not run concurrently with a read that the borrow
// tracker has not yet accounted for; the zero-borrow precondition is
// what makes the head repoint safe in the multi-thread model. It must
// also not overlap an unreleased guard, whose publish could capture a
// link node the collapse is about to reclaim.
func (c *Chain[T]) Clean(h *Handle) {
	if h.borrowed {
		h.borrowed = false
		c.borrows.Dec()
	}
	if c.borrows.Value() != 0 {
		return
	}
	// The swap claims the chain: of two handles cleaning at once, only
	// one observes the non-nil link and fires the reclamation hooks.
	n := c.link.Swap(nil)
	if n == nil {
		return
	}
	old := c.head.Swap(n.value)
	if c.onRetire != nil {
		c.onRetire(old)
		for o := n.next; o != nil; o = o.next {
			c.onRetire(o.value)
		}
	}
}

// Retired reports how many superseded values the chain retains. While
// Chained that is the chain length: the newest node holds the current
// value, but the head value it displaced is still held.
func (c *Chain[T]) Retired() int {
	n := 0
	for node := c.link.Load(); node != nil; node = node.next {
		n++
	}
	return n
}
