package graceful

import (
	"testing"
)

// TestPinnedReadAcrossUpdates walks the intended usage: one token held
// across a batch of reads, with updates landing in between.
func TestPinnedReadAcrossUpdates(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	r := New(d, []int{1, 2, 3, 4})

	g := d.Acquire()
	pinned := r.Read(g)

	r.Update(func(v *[]int) { *v = append(*v, 5) })

	if len(*pinned) != 4 {
		t.Errorf("pinned slice has %d elements, want the pre-update 4", len(*pinned))
	}
	if got := len(*r.Read(g)); got != 5 {
		t.Errorf("fresh read has %d elements, want 5", got)
	}
	g.Release()
}

// TestUpdateUsesCloneFunc tests that a custom clone function is used,
// so deep state is not shared between versions.
func TestUpdateUsesCloneFunc(t *testing.T) {
	d := NewDomain()
	defer d.Close()

	r := New(d, []int{1, 2, 3},
		WithClone[[]int](func(p *[]int) *[]int {
			cp := append([]int(nil), *p...)
			return &cp
		}))

	g := d.Acquire()
	old := r.Read(g)
	r.Update(func(v *[]int) { (*v)[0] = 9 })

	if (*old)[0] != 1 {
		t.Errorf("update mutated the pinned version through shared backing (got %d)", (*old)[0])
	}
	if (*r.Read(g))[0] != 9 {
		t.Errorf("fresh read did not observe the update")
	}
	g.Release()
}

func BenchmarkAcquireRelease(b *testing.B) {
	d := NewDomain(WithName("bench"))
	defer d.Close()

	for i := 0; i < b.N; i++ {
		d.Acquire().Release()
	}
}

func BenchmarkRead(b *testing.B) {
	d := NewDomain(WithName("bench"))
	defer d.Close()

	r := New(d, 42)
	g := d.Acquire()
	defer g.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if *r.Read(g) != 42 {
			b.Fatal("unexpected value")
		}
	}
}

func BenchmarkUpdate(b *testing.B) {
	d := NewDomain(WithName("bench"))
	defer d.Close()

	r := New(d, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Update(func(v *int) { *v = i })
	}
}
