package solve

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bluebear94/ursolve/expr"
)

// cpuJob is one sub-range of a layer's state indices assigned to a
// single worker, mirroring the job-channel shape of the teacher's
// multithreadSolveGeneric worker pool.
type cpuJob struct {
	lo, hi int // [lo, hi) into the layer's local index space
}

// cpuEvaluator iterates a compiled layer Program to its f64 fixed point
// entirely on CPU, fanning sub-ranges of the layer out across
// GOMAXPROCS workers via errgroup (spec.md §4.7).
type cpuEvaluator struct {
	prog     expr.Program
	depVals  []float64 // frozen dependency values, indexed by global index
	depStart int
	threads  int
}

func newCPUEvaluator(prog expr.Program, depVals []float64, depStart, threads int) *cpuEvaluator {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	return &cpuEvaluator{prog: prog, depVals: depVals, depStart: depStart, threads: threads}
}

// Run iterates until max|out-in| <= epsilon or maxIterations is
// exhausted, returning the converged values (layer-local order) and
// the iteration count actually used.
func (e *cpuEvaluator) Run(ctx context.Context, n int, epsilon float64, maxIterations int) ([]float64, int, float64, error) {
	in := make([]float64, n)
	out := make([]float64, n)

	var lastDelta float64
	for iter := 0; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, iter, lastDelta, ctx.Err()
		default:
		}

		lookup := e.lookup(in)
		if err := e.evalRange(ctx, out, n, lookup); err != nil {
			return nil, iter, lastDelta, err
		}

		delta := maxAbsDiff(in, out)
		lastDelta = delta
		in, out = out, in
		if delta <= epsilon {
			return in, iter + 1, delta, nil
		}
	}
	return in, maxIterations, lastDelta, NewDivergentLayer(-1, e.depStart, e.depStart+n, maxIterations, lastDelta, epsilon)
}

// lookup resolves a global variable index to its current value: below
// depStart it reads the frozen dependency slice, at or above it reads
// the layer's own in-progress buffer (spec.md §4.5's branch).
func (e *cpuEvaluator) lookup(in []float64) func(idx uint32) float64 {
	return func(idx uint32) float64 {
		i := int(idx)
		if i < e.depStart {
			return e.depVals[i]
		}
		return in[i-e.depStart]
	}
}

func (e *cpuEvaluator) evalRange(ctx context.Context, out []float64, n int, lookup func(idx uint32) float64) error {
	jobChan := make(chan cpuJob, e.threads)
	g, gctx := errgroup.WithContext(ctx)

	for t := 0; t < e.threads; t++ {
		g.Go(func() error {
			for j := range jobChan {
				for k := j.lo; k < j.hi; k++ {
					out[k] = expr.Evaluate(e.prog, k, lookup)
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
			return nil
		})
	}

	chunk := (n + e.threads - 1) / e.threads
	if chunk < 1 {
		chunk = 1
	}
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		jobChan <- cpuJob{lo: lo, hi: hi}
	}
	close(jobChan)

	return g.Wait()
}

func maxAbsDiff(a, b []float64) float64 {
	max := 0.0
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}
