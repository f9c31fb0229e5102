// Package testing provides a shared conformance test suite and
// benchmark suite for the rcu container variants. Each variant's own
// test file declares a PointerFactory describing its capabilities and
// runs RunPointerTests / RunPointerBenchmarks against it, so the
// semantics every container must share are written down exactly once.
package testing
