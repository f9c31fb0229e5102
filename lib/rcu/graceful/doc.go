// Package graceful implements the grace-period reclamation strategy:
// readers do not register on every read, they pin a generation of the
// reclamation domain once (a Grace token) and then read any number of
// containers at the cost of a single acquire-ordered pointer load each.
//
// A Domain carries a chain of reference-counted generations. Every
// update seals the current generation, recording the displaced value in
// it, and advances the chain to a fresh one. A sealed generation is
// reclaimed only when no Grace token pinning it, or any older
// generation, remains alive: each generation holds a strong reference
// to its successor, so generations always reclaim strictly in creation
// order and a token acquired at generation n protects every value
// retired in generation n or later.
//
// The domain is an explicit object with its own lifecycle rather than
// process-wide state: create one at startup, pass it to the containers
// that opt in, and Close it when done.
//
// Cost model: Acquire and Release are one short critical section and a
// reference-count update; Read is one atomic load; Update serializes on
// the domain's chain-advance lock and allocates one generation.
package graceful
