package internal

import (
	"sync"
	"testing"
)

// TestPlainCellSwap tests load/store/swap on the unsynchronized cell.
func TestPlainCellSwap(t *testing.T) {
	a, b := 1, 2
	c := NewPlainCell(&a)

	if c.Load() != &a {
		t.Error("Load did not return the stored pointer")
	}
	if old := c.Swap(&b); old != &a {
		t.Error("Swap did not return the displaced pointer")
	}
	if c.Load() != &b {
		t.Error("Load after Swap did not return the new pointer")
	}
}

// TestAtomicCellSwap tests load/store/swap on the atomic cell.
func TestAtomicCellSwap(t *testing.T) {
	a, b := 1, 2
	c := NewAtomicCell(&a)

	if c.Load() != &a {
		t.Error("Load did not return the stored pointer")
	}
	if old := c.Swap(&b); old != &a {
		t.Error("Swap did not return the displaced pointer")
	}
	if c.Load() != &b {
		t.Error("Load after Swap did not return the new pointer")
	}
}

// TestStripedCounter tests that concurrent increments and decrements
// through the striped counter sum correctly.
func TestStripedCounter(t *testing.T) {
	const (
		goroutines = 8
		rounds     = 1000
	)

	c := NewStripedCounter()
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				c.Inc()
			}
			for j := 0; j < rounds-1; j++ {
				c.Dec()
			}
		}()
	}
	wg.Wait()

	if got := c.Value(); got != goroutines {
		t.Errorf("Value() = %d, want %d", got, goroutines)
	}
}

// TestFlagLatch tests the single-writer latch variants.
func TestFlagLatch(t *testing.T) {
	for _, tc := range []struct {
		name string
		flag Flag
	}{
		{"PlainFlag", NewPlainFlag()},
		{"AtomicFlag", NewAtomicFlag()},
	} {
		if tc.flag.Set() {
			t.Errorf("%s: first Set reported already latched", tc.name)
		}
		if !tc.flag.Set() {
			t.Errorf("%s: second Set did not report latched", tc.name)
		}
		tc.flag.Clear()
		if tc.flag.Set() {
			t.Errorf("%s: Set after Clear reported latched", tc.name)
		}
	}

	var nf NoFlag
	if nf.Set() || nf.Set() {
		t.Error("NoFlag must never report latched")
	}
}
