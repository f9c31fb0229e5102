package testing

import (
	"testing"
)

// RunPointerBenchmarks runs the benchmark suite for one container
// variant.
func RunPointerBenchmarks(b *testing.B, name string, f PointerFactory) {
	b.Run(name+"/Deref", func(b *testing.B) {
		benchmarkDeref(b, f)
	})

	b.Run(name+"/DerefChained", func(b *testing.B) {
		benchmarkDerefChained(b, f)
	})

	b.Run(name+"/UpdateClean", func(b *testing.B) {
		benchmarkUpdateClean(b, f)
	})

	if f.Clone != nil {
		b.Run(name+"/CloneDeref", func(b *testing.B) {
			benchmarkCloneDeref(b, f)
		})
	}
}

// benchmarkDeref measures the compact-state read path.
func benchmarkDeref(b *testing.B, f PointerFactory) {
	p := f.New(Pair{1, 2}, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := p.Deref()
		if v.X != 1 {
			b.Fatal("unexpected value")
		}
	}
}

// benchmarkDerefChained measures the read path with one un-collapsed
// version, the worst case for the version-chain strategy.
func benchmarkDerefChained(b *testing.B, f PointerFactory) {
	p := f.New(Pair{0, 0}, nil)
	g := p.Update()
	*g.Value() = Pair{1, 2}
	g.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := p.Deref()
		if v.X != 1 {
			b.Fatal("unexpected value")
		}
	}
}

func benchmarkUpdateClean(b *testing.B, f PointerFactory) {
	p := f.New(Pair{0, 0}, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g := p.Update()
		g.Value().X = i
		g.Release()
		p.Clean()
	}
}

func benchmarkCloneDeref(b *testing.B, f PointerFactory) {
	p := f.New(Pair{1, 2}, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h := f.Clone(p)
		if h.Deref().X != 1 {
			b.Fatal("unexpected value")
		}
	}
}
