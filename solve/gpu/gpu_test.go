package gpu

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dgryski/go-pcgr"
	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/bluebear94/ursolve/expr"
)

// randomLayer builds a synthetic layer of n states, each five roll
// groups of k terms referencing frozen dependency values uniformly in
// [0,1], via two distinct sources of test randomness: go-pcgr picks
// each term's dependency index deterministically (seeded), and frand
// picks each state's k so group sizes vary between states.
func randomLayer(n, depSize int) (expr.Program, []float32) {
	rng := pcgr.New(42, 7)
	depVals := make([]float32, depSize)
	for i := range depVals {
		depVals[i] = float32(rng.Bounded(1000)) / 1000
	}

	termCounts := make([]int, n)
	for i := range termCounts {
		termCounts[i] = 1 + frand.Intn(3)
	}

	var words []expr.Word
	starts := make([]int, n)
	for i := 0; i < n; i++ {
		starts[i] = len(words)
		for r := 0; r < 5; r++ {
			k := termCounts[i]
			for t := 0; t < k; t++ {
				idx := uint32(rng.Bounded(uint32(depSize)))
				end := t == k-1
				words = append(words, expr.NewTerm(idx, false, end, false))
			}
		}
	}
	return expr.Program{Words: words, Starts: starts}, depVals
}

// TestGPUAndCPUAgreeOnSyntheticLayer exercises Testable Property S6: a
// layer evaluated once through the GPU stand-in's f32 path and once
// through plain f64 expr.Evaluate calls should agree to within 1e-5.
func TestGPUAndCPUAgreeOnSyntheticLayer(t *testing.T) {
	is := is.New(t)
	const n = 2000
	const depSize = 50
	prog, depVals32 := randomLayer(n, depSize)

	bufs := &Buffers{
		DepVals:    depVals32,
		In:         make([]float32, n),
		Out:        make([]float32, n),
		Words:      prog.Words,
		ExprStarts: prog.Starts,
		DepStart:   depSize,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _, err := Run(ctx, bufs, n, 1e-7, 1000)
	is.NoErr(err)

	depVals64 := make([]float64, depSize)
	for i, v := range depVals32 {
		depVals64[i] = float64(v)
	}
	lookup := func(idx uint32) float64 { return depVals64[idx] }

	for j := 0; j < n; j++ {
		want := expr.Evaluate(prog, j, lookup)
		got := float64(bufs.In[j])
		is.True(math.Abs(want-got) < 1e-5)
	}
}

func TestDispatchGridCoversEveryLane(t *testing.T) {
	is := is.New(t)
	for _, n := range []int{0, 1, 255, 256, 257, 10000} {
		gx, gy := dispatchGrid(n)
		is.True(gx*gy*WorkgroupSize >= n)
	}
}
