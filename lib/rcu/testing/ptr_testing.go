package testing

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/unguarded/rcu/lib/rcu"
)

// Pair is the value type used by the conformance suite.
type Pair struct {
	X, Y int
}

// PointerFactory describes one container variant under test.
type PointerFactory struct {
	// New creates a container holding v; onRetire (may be nil) must be
	// wired as the variant's retire hook.
	New func(v Pair, onRetire func(*Pair)) rcu.Pointer[Pair]
	// Clone aliases a handle, or nil for exclusive variants.
	Clone func(p rcu.Pointer[Pair]) rcu.Pointer[Pair]
	// ThreadSafe enables the concurrent part of the suite.
	ThreadSafe bool
	// SingleWriter marks variants that panic on a second in-flight
	// update instead of applying last-writer-wins.
	SingleWriter bool
}

// RunPointerTests runs the conformance suite for one container variant.
func RunPointerTests(t *testing.T, name string, f PointerFactory) {
	t.Run(name+"/DerefInitial", func(t *testing.T) {
		testDerefInitial(t, f)
	})
	t.Run(name+"/UpdatePublishes", func(t *testing.T) {
		testUpdatePublishes(t, f)
	})
	t.Run(name+"/OldReferenceSurvives", func(t *testing.T) {
		testOldReferenceSurvives(t, f)
	})
	t.Run(name+"/NestedGuardScope", func(t *testing.T) {
		testNestedGuardScope(t, f)
	})
	t.Run(name+"/GuardReleaseIdempotent", func(t *testing.T) {
		testGuardReleaseIdempotent(t, f)
	})
	t.Run(name+"/GuardDiscard", func(t *testing.T) {
		testGuardDiscard(t, f)
	})
	t.Run(name+"/CleanReclaimsRetired", func(t *testing.T) {
		testCleanReclaimsRetired(t, f)
	})
	t.Run(name+"/CleanIdempotent", func(t *testing.T) {
		testCleanIdempotent(t, f)
	})
	if f.Clone != nil {
		t.Run(name+"/CloneSharesSlot", func(t *testing.T) {
			testCloneSharesSlot(t, f)
		})
		t.Run(name+"/CleanNoopWithBorrows", func(t *testing.T) {
			testCleanNoopWithBorrows(t, f)
		})
	}
	if f.SingleWriter {
		t.Run(name+"/SecondUpdatePanics", func(t *testing.T) {
			testSecondUpdatePanics(t, f)
		})
	} else {
		t.Run(name+"/OverlappingGuardsLastWriterWins", func(t *testing.T) {
			testOverlappingGuards(t, f)
		})
	}
	if f.ThreadSafe {
		t.Run(name+"/ConcurrentReaders", func(t *testing.T) {
			testConcurrentReaders(t, f)
		})
	}
}

func testDerefInitial(t *testing.T, f PointerFactory) {
	p := f.New(Pair{4, 4}, nil)
	if got := *p.Deref(); got != (Pair{4, 4}) {
		t.Errorf("Deref after New = %v, want {4 4}", got)
	}
	if p.Retired() != 0 {
		t.Errorf("fresh container has %d retired values, want 0", p.Retired())
	}
}

func testUpdatePublishes(t *testing.T, f PointerFactory) {
	p := f.New(Pair{4, 4}, nil)
	g := p.Update()
	*g.Value() = Pair{5, 5}
	g.Release()
	if got := *p.Deref(); got != (Pair{5, 5}) {
		t.Errorf("Deref after update = %v, want {5 5}", got)
	}
}

func testOldReferenceSurvives(t *testing.T, f PointerFactory) {
	p := f.New(Pair{4, 4}, nil)
	old := p.Deref()

	g := p.Update()
	*g.Value() = Pair{5, 5}
	g.Release()

	if *old != (Pair{4, 4}) {
		t.Errorf("pre-update reference now reads %v, want {4 4}", *old)
	}
	if got := *p.Deref(); got != (Pair{5, 5}) {
		t.Errorf("Deref after update = %v, want {5 5}", got)
	}
	if p.Retired() != 1 {
		t.Errorf("retired count after one update = %d, want 1", p.Retired())
	}
}

func testNestedGuardScope(t *testing.T, f PointerFactory) {
	p := f.New(Pair{4, 4}, nil)

	g := p.Update()
	*g.Value() = Pair{5, 5}
	g.Release()

	// While a guard is held and mutated, other references must keep
	// seeing the published value.
	inner := p.Update()
	if got := *p.Deref(); got != (Pair{5, 5}) {
		t.Errorf("Deref with unreleased guard = %v, want {5 5}", got)
	}
	inner.Value().X = 7
	inner.Value().Y = 7
	if got := *p.Deref(); got != (Pair{5, 5}) {
		t.Errorf("Deref after mutating unreleased guard = %v, want {5 5}", got)
	}
	if got := *inner.Value(); got != (Pair{7, 7}) {
		t.Errorf("guard value = %v, want {7 7}", got)
	}
	inner.Release()

	if got := *p.Deref(); got != (Pair{7, 7}) {
		t.Errorf("Deref after releasing guard = %v, want {7 7}", got)
	}
}

func testGuardReleaseIdempotent(t *testing.T, f PointerFactory) {
	p := f.New(Pair{1, 1}, nil)
	g := p.Update()
	*g.Value() = Pair{2, 2}
	g.Release()
	g.Release() // second release must not publish again
	if p.Retired() != 1 {
		t.Errorf("retired count after double release = %d, want 1", p.Retired())
	}
}

func testGuardDiscard(t *testing.T, f PointerFactory) {
	p := f.New(Pair{1, 1}, nil)
	g := p.Update()
	*g.Value() = Pair{9, 9}
	g.Discard()
	if got := *p.Deref(); got != (Pair{1, 1}) {
		t.Errorf("Deref after discarded update = %v, want {1 1}", got)
	}
	if p.Retired() != 0 {
		t.Errorf("retired count after discard = %d, want 0", p.Retired())
	}
	// The discarded update must not leave the container wedged.
	g2 := p.Update()
	*g2.Value() = Pair{2, 2}
	g2.Release()
	if got := *p.Deref(); got != (Pair{2, 2}) {
		t.Errorf("Deref after post-discard update = %v, want {2 2}", got)
	}
}

func testCleanReclaimsRetired(t *testing.T, f PointerFactory) {
	var freed []Pair
	p := f.New(Pair{1, 1}, func(v *Pair) { freed = append(freed, *v) })

	g := p.Update()
	*g.Value() = Pair{2, 2}
	g.Release()
	g = p.Update()
	*g.Value() = Pair{3, 3}
	g.Release()

	if len(freed) != 0 {
		t.Fatalf("values reclaimed before Clean: %v", freed)
	}
	if p.Retired() != 2 {
		t.Errorf("retired count after two updates = %d, want 2", p.Retired())
	}

	p.Clean()
	if p.Retired() != 0 {
		t.Errorf("retired count after Clean = %d, want 0", p.Retired())
	}
	if len(freed) != 2 {
		t.Errorf("reclaimed %d values, want 2 (%v)", len(freed), freed)
	}
	for _, v := range freed {
		if v == (Pair{3, 3}) {
			t.Errorf("current value {3 3} was reclaimed")
		}
	}
	if got := *p.Deref(); got != (Pair{3, 3}) {
		t.Errorf("Deref after Clean = %v, want {3 3}", got)
	}
}

func testCleanIdempotent(t *testing.T, f PointerFactory) {
	var frees atomic.Int64
	p := f.New(Pair{1, 1}, func(*Pair) { frees.Add(1) })

	p.Clean() // nothing retired: must be a no-op
	if n := frees.Load(); n != 0 {
		t.Errorf("Clean on fresh container reclaimed %d values", n)
	}

	g := p.Update()
	*g.Value() = Pair{2, 2}
	g.Release()
	p.Clean()
	p.Clean()
	p.Clean()
	if n := frees.Load(); n != 1 {
		t.Errorf("repeated Clean reclaimed %d values, want exactly 1", n)
	}
	if got := *p.Deref(); got != (Pair{2, 2}) {
		t.Errorf("Deref after repeated Clean = %v, want {2 2}", got)
	}
}

func testCloneSharesSlot(t *testing.T, f PointerFactory) {
	orig := f.New(Pair{4, 4}, nil)
	copied := f.Clone(orig)

	if *orig.Deref() != *copied.Deref() {
		t.Fatalf("clone reads %v, original reads %v", *copied.Deref(), *orig.Deref())
	}

	g := orig.Update()
	*g.Value() = Pair{5, 5}
	g.Release()

	if got := *orig.Deref(); got != (Pair{5, 5}) {
		t.Errorf("original reads %v after update, want {5 5}", got)
	}
	if got := *copied.Deref(); got != (Pair{5, 5}) {
		t.Errorf("clone reads %v after update through original, want {5 5}", got)
	}
}

func testCleanNoopWithBorrows(t *testing.T, f PointerFactory) {
	var frees atomic.Int64
	orig := f.New(Pair{1, 1}, func(*Pair) { frees.Add(1) })
	other := f.Clone(orig)

	_ = other.Deref() // other now holds a borrow

	g := orig.Update()
	*g.Value() = Pair{2, 2}
	g.Release()

	orig.Clean() // other's borrow must block reclamation
	if orig.Retired() != 1 {
		t.Errorf("retired count after blocked Clean = %d, want 1", orig.Retired())
	}
	if n := frees.Load(); n != 0 {
		t.Errorf("blocked Clean reclaimed %d values", n)
	}

	other.Clean() // last borrow dropped: reclamation proceeds
	if orig.Retired() != 0 {
		t.Errorf("retired count after final Clean = %d, want 0", orig.Retired())
	}
	if n := frees.Load(); n != 1 {
		t.Errorf("final Clean reclaimed %d values, want 1", n)
	}
}

func testSecondUpdatePanics(t *testing.T, f PointerFactory) {
	p := f.New(Pair{1, 1}, nil)
	g := p.Update()
	defer g.Release()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("second in-flight update did not panic")
		}
		err, ok := r.(*rcu.Error)
		if !ok {
			t.Fatalf("panic value is %T, want *rcu.Error", r)
		}
		if err.Code != rcu.RetCConcurrentUpdate {
			t.Errorf("panic code = %v, want RetCConcurrentUpdate", err.Code)
		}
	}()
	p.Update()
}

func testOverlappingGuards(t *testing.T, f PointerFactory) {
	var frees atomic.Int64
	p := f.New(Pair{1, 1}, func(*Pair) { frees.Add(1) })

	g1 := p.Update()
	*g1.Value() = Pair{2, 2}
	g2 := p.Update()
	*g2.Value() = Pair{3, 3}

	g1.Release()
	g2.Release()

	// Last writer wins the pointer; both displaced values are retired.
	if got := *p.Deref(); got != (Pair{3, 3}) {
		t.Errorf("Deref after overlapping releases = %v, want {3 3}", got)
	}
	if p.Retired() != 2 {
		t.Errorf("retired count after overlapping releases = %d, want 2", p.Retired())
	}
	p.Clean()
	if n := frees.Load(); n != 2 {
		t.Errorf("reclaimed %d values, want 2 (neither leaked nor double-freed)", n)
	}
}

func testConcurrentReaders(t *testing.T, f PointerFactory) {
	const (
		readers = 8
		updates = 200
	)

	p := f.New(Pair{0, 0}, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < readers; i++ {
		h := f.Clone(p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					h.Clean()
					return
				default:
				}
				v := *h.Deref()
				if v.X != v.Y {
					t.Errorf("torn read: %v", v)
					return
				}
				h.Clean()
			}
		}()
	}

	for i := 1; i <= updates; i++ {
		g := p.Update()
		g.Value().X = i
		g.Value().Y = i
		g.Release()
	}
	close(stop)
	wg.Wait()

	if got := *p.Deref(); got != (Pair{updates, updates}) {
		t.Errorf("final value = %v, want {%d %d}", got, updates, updates)
	}
}
