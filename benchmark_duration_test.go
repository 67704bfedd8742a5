package temporal

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func benchDurations(n int) (*Series, *Series) {
	rng := rand.New(rand.NewPCG(7, 11))
	a := make([]int64, n)
	b := make([]int64, n)
	valid := make([]bool, n)
	for i := range a {
		a[i] = rng.Int64N(1 << 40)
		b[i] = rng.Int64N(1<<20) + 1
		valid[i] = i%13 != 0
	}
	return NewSeriesDuration("a", a, valid, Microseconds), NewSeriesDuration("b", b, nil, Microseconds)
}

var benchSizes = []int{1_000, 100_000, 1_000_000}

func BenchmarkDuration_Add(b *testing.B) {
	for _, n := range benchSizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			x, y := benchDurations(n)
			defer x.Release()
			defer y.Release()
			b.ResetTimer()
			for b.Loop() {
				out, err := x.Add(y)
				if err != nil {
					b.Fatal(err)
				}
				out.Release()
			}
		})
	}
}

func BenchmarkDuration_MultiplyFloat(b *testing.B) {
	f := NewSeriesFloat64("f", []float64{1.25})
	defer f.Release()
	for _, n := range benchSizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			x, y := benchDurations(n)
			defer x.Release()
			defer y.Release()
			b.ResetTimer()
			for b.Loop() {
				out, err := x.Multiply(f)
				if err != nil {
					b.Fatal(err)
				}
				out.Release()
			}
		})
	}
}

func BenchmarkDuration_Remainder(b *testing.B) {
	for _, n := range benchSizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			x, y := benchDurations(n)
			defer x.Release()
			defer y.Release()
			b.ResetTimer()
			for b.Loop() {
				out, err := x.Remainder(y)
				if err != nil {
					b.Fatal(err)
				}
				out.Release()
			}
		})
	}
}

func BenchmarkDuration_Reductions(b *testing.B) {
	x, y := benchDurations(1_000_000)
	defer x.Release()
	defer y.Release()

	reductions := map[string]func() (Scalar, error){
		"sum":    x.SumReduce,
		"mean":   x.MeanReduce,
		"median": x.MedianReduce,
		"var":    func() (Scalar, error) { return x.VarReduce(1) },
		"p90":    func() (Scalar, error) { return x.QuantileReduce(0.9, Linear) },
	}
	for name, fn := range reductions {
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				if _, err := fn(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkGroupTuples(b *testing.B) {
	n := 1_000_000
	keys := make([]int64, n)
	rng := rand.New(rand.NewPCG(1, 1))
	for i := range keys {
		keys[i] = rng.Int64N(1000)
	}
	s := NewSeriesDuration("k", keys, nil, Milliseconds)
	defer s.Release()

	for _, multithreaded := range []bool{false, true} {
		b.Run(fmt.Sprintf("multithreaded=%v", multithreaded), func(b *testing.B) {
			for b.Loop() {
				s.GroupTuples(multithreaded, false)
			}
		})
	}
}

func BenchmarkAggSum(b *testing.B) {
	x, y := benchDurations(1_000_000)
	defer x.Release()
	defer y.Release()
	keys := NewSeriesInt64("k", x.ToInt64())
	defer keys.Release()
	mod := NewSeriesInt64("m", []int64{500})
	defer mod.Release()
	buckets, err := keys.Remainder(mod)
	if err != nil {
		b.Fatal(err)
	}
	defer buckets.Release()
	groups := buckets.GroupTuples(true, true)

	b.ResetTimer()
	for b.Loop() {
		out, err := x.AggSum(groups)
		if err != nil {
			b.Fatal(err)
		}
		out.Release()
	}
}
