package graceful

import (
	"fmt"
	"sync"
	"testing"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unguarded/rcu/lib/rcu"
)

type pair struct {
	X, Y int
}

// TestReadThroughGrace tests the basic read/update cycle.
func TestReadThroughGrace(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	r := New(d, pair{4, 4})

	g := d.Acquire()
	if got := *r.Read(g); got != (pair{4, 4}) {
		t.Errorf("Read = %v, want {4 4}", got)
	}

	r.Update(func(v *pair) { *v = pair{5, 5} })
	if got := *r.Read(g); got != (pair{5, 5}) {
		t.Errorf("Read after update = %v, want {5 5}", got)
	}
	g.Release()
}

// TestGraceBlocksReclamation tests the grace-period guarantee: a value
// observed under a token is not reclaimed, no matter how many updates
// follow, until the token is released.
func TestGraceBlocksReclamation(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))

	g := d.Acquire()
	old := r.Read(g)

	for i := 1; i <= 3; i++ {
		i := i
		r.Update(func(v *pair) { *v = pair{i, i} })
	}

	if freed != 0 {
		t.Fatalf("%d values reclaimed while a token is alive", freed)
	}
	if *old != (pair{0, 0}) {
		t.Fatalf("pinned reference now reads %v, want {0 0}", *old)
	}

	g.Release()
	if freed != 3 {
		t.Errorf("reclaimed %d values after release, want 3", freed)
	}
}

// TestReclaimCreationOrder tests that generations reclaim strictly in
// the order their updates happened.
func TestReclaimCreationOrder(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	var order []pair
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(v *pair) { order = append(order, *v) }))

	g := d.Acquire()
	_ = r.Read(g)
	for i := 1; i <= 3; i++ {
		i := i
		r.Update(func(v *pair) { *v = pair{i, i} })
	}
	g.Release()

	want := []pair{{0, 0}, {1, 1}, {2, 2}}
	if len(order) != len(want) {
		t.Fatalf("reclaimed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("reclaimed %v, want %v (creation order)", order, want)
		}
	}
}

// TestImmediateReclaimWithoutTokens tests that with no token alive, a
// displaced value is reclaimed as soon as its update completes.
func TestImmediateReclaimWithoutTokens(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))

	r.Update(func(v *pair) { *v = pair{1, 1} })
	if freed != 1 {
		t.Errorf("reclaimed %d values, want 1 immediately after update", freed)
	}
}

// TestLateTokenDoesNotPinOlderGenerations tests that a token acquired
// after updates does not resurrect protection for already-reclaimable
// generations, and that releasing tokens out of order keeps everything
// pinned until the oldest goes away.
func TestLateTokenDoesNotPinOlderGenerations(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))

	early := d.Acquire()
	_ = r.Read(early)
	r.Update(func(v *pair) { *v = pair{1, 1} })
	r.Update(func(v *pair) { *v = pair{2, 2} })

	late := d.Acquire()
	_ = r.Read(late)

	// Releasing the late token frees nothing: the early token pins its
	// generation and, through the chain, every later one.
	late.Release()
	if freed != 0 {
		t.Fatalf("late release reclaimed %d values", freed)
	}

	early.Release()
	if freed != 2 {
		t.Errorf("early release reclaimed %d values, want 2", freed)
	}
}

// TestGraceReleaseIdempotent tests that releasing twice is harmless.
func TestGraceReleaseIdempotent(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))

	g := d.Acquire()
	_ = r.Read(g)
	r.Update(func(v *pair) { *v = pair{1, 1} })

	g.Release()
	g.Release()
	if freed != 1 {
		t.Errorf("reclaimed %d values, want 1", freed)
	}
}

// TestReadAfterReleasePanics tests the released-token guard.
func TestReadAfterReleasePanics(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	r := New(d, pair{0, 0})
	g := d.Acquire()
	g.Release()

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("read through a released token did not panic")
		}
		err, ok := rec.(*rcu.Error)
		if !ok || err.Code != rcu.RetCGraceReleased {
			t.Fatalf("panic value = %v, want *rcu.Error with RetCGraceReleased", rec)
		}
	}()
	r.Read(g)
}

// TestAcquireAfterClosePanics tests the closed-domain guard.
func TestAcquireAfterClosePanics(t *testing.T) {
	d := NewDomain()
	d.Close()
	d.Close() // closing twice is a no-op

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("Acquire on a closed domain did not panic")
		}
		err, ok := rec.(*rcu.Error)
		if !ok || err.Code != rcu.RetCDomainClosed {
			t.Fatalf("panic value = %v, want *rcu.Error with RetCDomainClosed", rec)
		}
	}()
	d.Acquire()
}

// TestCloseDrainsPendingReclamation tests that Close lets the chain
// drain once outstanding tokens are gone.
func TestCloseDrainsPendingReclamation(t *testing.T) {
	d := NewDomain()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))

	g := d.Acquire()
	_ = r.Read(g)
	r.Update(func(v *pair) { *v = pair{1, 1} })

	d.Close()
	if freed != 0 {
		t.Fatalf("Close reclaimed %d values while a token is alive", freed)
	}

	g.Release()
	if freed != 1 {
		t.Errorf("reclaimed %d values after the last token released, want 1", freed)
	}
}

// TestConcurrentReadersAndUpdaters exercises the domain under parallel
// readers and writers; run with -race.
func TestConcurrentReadersAndUpdaters(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	r := New(d, pair{0, 0})

	const (
		readers = 6
		writers = 2
		rounds  = 200
	)

	var readerWg, writerWg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < readers; i++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := d.Acquire()
				v := *r.Read(g)
				if v.X != v.Y {
					t.Errorf("torn read: %v", v)
					g.Release()
					return
				}
				g.Release()
			}
		}()
	}

	for i := 0; i < writers; i++ {
		writerWg.Add(1)
		go func() {
			defer writerWg.Done()
			for j := 0; j < rounds; j++ {
				r.Update(func(v *pair) {
					v.X++
					v.Y = v.X
				})
			}
		}()
	}

	// Readers spin until the writers have finished.
	writerWg.Wait()
	close(stop)
	readerWg.Wait()

	g := d.Acquire()
	v := *r.Read(g)
	g.Release()
	if v.X != v.Y {
		t.Errorf("final value torn: %v", v)
	}
}

// TestMetricsWiring tests that domain counters advance.
func TestMetricsWiring(t *testing.T) {
	const name = "metrics-wiring-test"
	d := NewDomain(WithName(name))
	defer d.Close()

	freed := 0
	r := New(d, pair{0, 0}, WithOnRetire[pair](func(*pair) { freed++ }))
	r.Update(func(v *pair) { *v = pair{1, 1} })

	updates := metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_updates_total{domain=%q}`, name))
	if updates.Get() == 0 {
		t.Error("update counter did not advance")
	}
	reclaimed := metrics.GetOrCreateCounter(fmt.Sprintf(`rcu_domain_reclaimed_values_total{domain=%q}`, name))
	if reclaimed.Get() == 0 {
		t.Error("reclaimed-values counter did not advance")
	}
}
