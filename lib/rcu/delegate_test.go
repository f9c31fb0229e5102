package rcu_test

import (
	"encoding/json"
	"testing"

	"github.com/unguarded/rcu/lib/rcu"
)

// TestStringForwarding tests that formatting passes through to the
// wrapped value.
func TestStringForwarding(t *testing.T) {
	c := rcu.NewCell(pair{X: 1, Y: 2})
	if got, want := c.String(), "{1 2}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	r := rcu.NewSyncRcu(pair{X: 3, Y: 4})
	if got, want := r.String(), "{3 4}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// TestJSONRoundtrip tests marshal/unmarshal delegation across variants.
func TestJSONRoundtrip(t *testing.T) {
	c := rcu.NewSharedCell(pair{X: 1, Y: 2})

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(data), `{"X":1,"Y":2}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	if err := json.Unmarshal([]byte(`{"X":7,"Y":8}`), c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := *c.Deref(); got != (pair{X: 7, Y: 8}) {
		t.Errorf("Deref after Unmarshal = %v, want {7 8}", got)
	}
	// The decode went through a regular update: the old value is retired.
	if c.Retired() != 1 {
		t.Errorf("retired count after Unmarshal = %d, want 1", c.Retired())
	}
}

// TestUnmarshalErrorKeepsValue tests that a failed decode publishes
// nothing and does not wedge the single-writer latch.
func TestUnmarshalErrorKeepsValue(t *testing.T) {
	r := rcu.NewSharedRcu(pair{X: 1, Y: 2})

	if err := r.UnmarshalJSON([]byte(`{"X": "not a number"}`)); err == nil {
		t.Fatal("Unmarshal of invalid payload succeeded")
	}
	if got := *r.Deref(); got != (pair{X: 1, Y: 2}) {
		t.Errorf("Deref after failed Unmarshal = %v, want {1 2}", got)
	}

	// A fresh update must not panic with a concurrent-update violation.
	g := r.Update()
	*g.Value() = pair{X: 5, Y: 6}
	g.Release()
	if got := *r.Deref(); got != (pair{X: 5, Y: 6}) {
		t.Errorf("Deref after recovery update = %v, want {5 6}", got)
	}
}
