package internal

import (
	"testing"
)

func newTestSlot(v int, onRetire func(*int)) (*Slot[int], *PlainCounter) {
	borrows := NewPlainCounter()
	val := v
	return NewSlot(&val, NewPlainCell[int](nil), borrows, NoopLocker{}, onRetire), borrows
}

// TestSlotBorrowAccounting tests that repeated reads through one handle
// count a single borrow, and that distinct handles count separately.
func TestSlotBorrowAccounting(t *testing.T) {
	s, borrows := newTestSlot(1, nil)

	var h1, h2 Handle
	s.Read(&h1)
	s.Read(&h1)
	s.Read(&h1)
	if borrows.Value() != 1 {
		t.Errorf("borrow count after repeated reads = %d, want 1", borrows.Value())
	}

	s.Read(&h2)
	if borrows.Value() != 2 {
		t.Errorf("borrow count with two handles = %d, want 2", borrows.Value())
	}

	s.Clean(&h1)
	if borrows.Value() != 1 {
		t.Errorf("borrow count after one Clean = %d, want 1", borrows.Value())
	}
	s.Clean(&h2)
	if borrows.Value() != 0 {
		t.Errorf("borrow count after both Cleans = %d, want 0", borrows.Value())
	}
}

// TestSlotCleanGating tests that reclamation waits for the slot-wide
// count to reach zero and then runs exactly once.
func TestSlotCleanGating(t *testing.T) {
	freed := 0
	s, _ := newTestSlot(1, func(*int) { freed++ })

	var h1, h2 Handle
	s.Read(&h1)
	s.Read(&h2)

	two := 2
	s.Publish(&two)
	if s.Retired() != 1 {
		t.Fatalf("Retired() after publish = %d, want 1", s.Retired())
	}

	s.Clean(&h1)
	if freed != 0 || s.Retired() != 1 {
		t.Errorf("reclamation ran with a borrow outstanding (freed=%d retired=%d)", freed, s.Retired())
	}

	s.Clean(&h2)
	if freed != 1 || s.Retired() != 0 {
		t.Errorf("reclamation did not run at zero borrows (freed=%d retired=%d)", freed, s.Retired())
	}

	if *s.Current() != 2 {
		t.Errorf("current value = %d, want 2", *s.Current())
	}
}

// TestChainCollapse tests the version chain's state machine: Compact,
// Chained after publishes, Compact again after Clean.
func TestChainCollapse(t *testing.T) {
	var freed []int
	one := 1
	c := NewChain(&one, NewPlainCell[int](nil), NewPlainCell[Node[int]](nil),
		NewPlainCounter(), NewPlainFlag(), func(v *int) { freed = append(freed, *v) })

	var h Handle
	if got := *c.Read(&h); got != 1 {
		t.Fatalf("Read on compact chain = %d, want 1", got)
	}

	two, three := 2, 3
	c.BeginWrite()
	c.Publish(&two)
	c.BeginWrite()
	c.Publish(&three)

	if got := *c.Read(&h); got != 3 {
		t.Errorf("Read on chained = %d, want the newest value 3", got)
	}
	if c.Retired() != 2 {
		t.Errorf("Retired() while chained = %d, want 2", c.Retired())
	}

	c.Clean(&h)
	if got := *c.Read(&h); got != 3 {
		t.Errorf("Read after collapse = %d, want 3", got)
	}
	if c.Retired() != 0 {
		t.Errorf("Retired() after collapse = %d, want 0", c.Retired())
	}
	if len(freed) != 2 {
		t.Errorf("collapse reclaimed %v, want [1 2] in some order", freed)
	}
	for _, v := range freed {
		if v == 3 {
			t.Error("collapse reclaimed the current value")
		}
	}
}
