// Package rcu provides a family of smart-pointer containers that give
// read access at the cost of a single pointer dereference while still
// supporting mutation through a Read-Copy-Update protocol: an update
// clones the current value, lets the caller modify the clone through a
// guard, and publishes the clone as the new current value when the
// guard is released. Readers that obtained a reference before the
// publication keep observing the old value; the displaced value is
// parked in a retirement store until Clean proves it safe to reclaim.
//
// The package offers two reclamation strategies:
//
//   - Eager retire (Cell, SharedCell, SyncCell): every update
//     immediately appends the replaced value to the retirement store,
//     which is cleared only by Clean once no handle holds a borrow.
//   - Version chain (Rcu, SharedRcu, SyncRcu): updates push the new
//     value onto a forward chain instead of replacing the head slot;
//     readers follow the chain one link to the newest value; Clean
//     collapses the chain back into the head slot once safe.
//
// Both strategies come in three ownership models:
//
//   - Exclusive (Cell, Rcu): a single handle on a single goroutine; no
//     reference counting, no atomics; Clean frees unconditionally.
//   - Shared single-thread (SharedCell, SharedRcu): multiple handles
//     created via Clone alias one slot on one goroutine; plain counters.
//   - Shared multi-thread (SyncCell, SyncRcu): handles may live on
//     different goroutines; pointer publication uses atomic
//     acquire/release operations and borrow counts are concurrent.
//
// A handle itself is never safe for concurrent use by multiple
// goroutines; with the multi-thread containers each goroutine must use
// its own handle obtained via Clone.
//
// The grace-period strategy, which amortizes reader registration over
// a batch of reads, lives in the graceful subpackage.
package rcu
