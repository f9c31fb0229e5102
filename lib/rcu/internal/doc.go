// Package internal implements the reclamation engine shared by every
// container variant in the rcu package.
//
// The engine is written once and parameterized by an ownership
// discipline, a small set of interchangeable primitives:
//
//   - Cell: a publishable pointer slot (plain or atomic
//     acquire/release)
//   - Counter: the slot-wide borrow count (absent, plain, or striped
//     concurrent)
//   - Flag: the single-writer latch of the version chain (absent,
//     plain, or atomic)
//   - sync.Locker: the retirement-store lock (no-op or mutex)
//
// Slot composes these into the eager-retire strategy, Chain into the
// version-chain strategy. The exclusive, shared-single-thread and
// shared-multi-thread containers differ only in which primitives they
// plug in.
package internal
