package solve

import (
	"context"

	"github.com/google/uuid"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/bluebear94/ursolve/enumerate"
	"github.com/bluebear94/ursolve/expr"
	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/internal/urconfig"
	"github.com/bluebear94/ursolve/key"
	"github.com/bluebear94/ursolve/persist"
	"github.com/bluebear94/ursolve/solve/gpu"
)

// Result is the fully solved state space: the sorted state vector and
// its aligned value vector.
type Result struct {
	States []key.Compact
	Values []float64
}

// Driver runs the layered value-iteration solve described in spec.md
// §4.6: enumerate (or resume from cache), then iterate each layer in
// dependency order to its fixed point.
type Driver struct {
	Config urconfig.Config
}

// Solve runs the full solve, attempting to resume from persist's cache
// files first (spec.md §6, "optional resume from cache"): it loads
// order_<G>.bin and the highest-numbered vals_<G>_<k>.bin via persist,
// and returns that value table directly if it's present and complete;
// a persist.ErrNotFound on either file triggers enumeration or
// iteration from scratch instead.
func (d *Driver) Solve(ctx context.Context) (*Result, error) {
	runID := uuid.New()
	log.Info().Str("run_id", runID.String()).Int("goal_score", d.Config.GoalScore).Msg("solve starting")

	if d.Config.GoalScore > 0 {
		game.GoalScore = uint8(d.Config.GoalScore)
	}

	states, layers, err := d.loadOrEnumerate()
	if err != nil {
		return nil, err
	}

	if resumed, ok := d.loadCachedVals(states); ok {
		log.Info().Str("run_id", runID.String()).Int("states", len(states)).Msg("resumed converged value table from cache")
		return &Result{States: states, Values: resumed}, nil
	}

	vals := make([]float64, len(states))
	gpuThreshold := d.Config.GPUThreshold
	if gpuThreshold <= 0 {
		gpuThreshold = defaultGPUThreshold()
	}

	for li, layer := range layers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		depStart := dependencyStart(layers, li)
		n := layer.End - layer.Start
		universe := expr.NewUniverse(states, depStart, layer.End)
		prog, err := expr.Compile(states, layer.Start, layer.End, universe)
		if err != nil {
			return nil, &Error{Kind: InvariantViolation, Message: "expression compile failed", Cause: err}
		}

		depVals := vals[:layer.Start]
		iters, delta, err := d.solveLayer(ctx, prog, depVals, layer.Start, n, vals[layer.Start:layer.End], n >= gpuThreshold)
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("run_id", runID.String()).
			Int("layer", li).
			Int("range_start", layer.Start).
			Int("range_end", layer.End).
			Int("iterations", iters).
			Float64("final_delta", delta).
			Msg("layer converged")
	}

	return &Result{States: states, Values: vals}, nil
}

// solveLayer runs either the GPU-then-CPU precision-switch pipeline or
// the CPU-only path, writing the converged values into out (which
// aliases vals[layer.Start:layer.End]).
func (d *Driver) solveLayer(ctx context.Context, prog expr.Program, depVals []float64, depStart, n int, out []float64, useGPU bool) (int, float64, error) {
	if n == 0 {
		return 0, 0, nil
	}

	if useGPU {
		gpuDepVals := make([]float32, len(depVals))
		for i, v := range depVals {
			gpuDepVals[i] = float32(v)
		}
		bufs := &gpu.Buffers{
			DepVals:    gpuDepVals,
			In:         make([]float32, n),
			Out:        make([]float32, n),
			Words:      prog.Words,
			ExprStarts: prog.Starts,
			DepStart:   depStart,
		}
		gpuIters, _, err := gpu.Run(ctx, bufs, n, float32(d.Config.EpsilonGPU), d.Config.MaxIterations)
		if err != nil {
			return gpuIters, 0, &Error{Kind: DivergentLayer, Message: "gpu pass failed to converge", Cause: err}
		}
		for i, v := range bufs.In {
			out[i] = float64(v)
		}
	}

	depValsF64 := depVals
	cpu := newCPUEvaluator(prog, depValsF64, depStart, d.Config.Threads)
	if useGPU {
		// Seed the CPU refinement pass from the GPU's converged f32
		// values, upcast to f64, per spec.md §4.6's precision policy.
		seeded := make([]float64, n)
		copy(seeded, out)
		return d.runSeededCPU(ctx, cpu, seeded, n, out)
	}

	converged, iters, delta, err := cpu.Run(ctx, n, d.Config.Epsilon, d.Config.MaxIterations)
	if err != nil {
		return iters, delta, err
	}
	copy(out, converged)
	return iters, delta, nil
}

// runSeededCPU runs the CPU evaluator's iteration loop starting from an
// already-close seed (the GPU pass's output) rather than zero, since
// cpuEvaluator.Run always starts from an all-zero buffer otherwise.
func (d *Driver) runSeededCPU(ctx context.Context, cpu *cpuEvaluator, seed []float64, n int, out []float64) (int, float64, error) {
	in := seed
	buf := make([]float64, n)
	var lastDelta float64
	for iter := 0; iter < d.Config.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return iter, lastDelta, ctx.Err()
		default:
		}
		lookup := cpu.lookup(in)
		if err := cpu.evalRange(ctx, buf, n, lookup); err != nil {
			return iter, lastDelta, err
		}
		delta := maxAbsDiff(in, buf)
		lastDelta = delta
		in, buf = buf, in
		if delta <= d.Config.Epsilon {
			copy(out, in)
			return iter + 1, delta, nil
		}
	}
	copy(out, in)
	return d.Config.MaxIterations, lastDelta, NewDivergentLayer(-1, 0, n, d.Config.MaxIterations, lastDelta, d.Config.Epsilon)
}

// dependencyStart finds the minimum layer-start index among all
// earlier layers whose PermaKey is reachable-in-one-move from layer
// li's key (spec.md §4.6 step 1). Layers are score-sorted, so this
// window is bounded by at most the three preceding score-pair
// combinations.
func dependencyStart(layers []enumerate.Layer, li int) int {
	target := layers[li].Key
	start := layers[li].Start
	for j := 0; j < li; j++ {
		if layers[j].Key.ReachableInOneMoveFrom(target) {
			if layers[j].Start < start {
				start = layers[j].Start
			}
		}
	}
	return start
}

// loadCachedVals attempts to resume the highest-numbered persisted
// value table for states, per spec.md §6's "optional resume from
// cache" behavior. It reports ok=false on any ErrNotFound or on a
// length mismatch against states (a stale cache from a different
// GOAL_SCORE or enumeration), in which case the caller solves from
// scratch instead of trusting a partial or incompatible table.
func (d *Driver) loadCachedVals(states []key.Compact) ([]float64, bool) {
	path, ok := persist.LatestValsPath(d.Config.DataDir, d.Config.GoalScore)
	if !ok {
		return nil, false
	}
	vals, err := persist.ReadVals(path)
	if err != nil {
		if err != persist.ErrNotFound {
			log.Warn().Err(err).Str("path", path).Msg("failed reading cached value table, recomputing")
		}
		return nil, false
	}
	if len(vals) != len(states) {
		log.Warn().Str("path", path).Msg("cached value table length mismatch, recomputing")
		return nil, false
	}
	return vals, true
}

func (d *Driver) loadOrEnumerate() ([]key.Compact, []enumerate.Layer, error) {
	orderPath := persist.OrderPath(d.Config.DataDir, d.Config.GoalScore)
	states, err := persist.ReadOrder(orderPath)
	if err == nil {
		return states, enumerate.BuildLayersFor(states), nil
	}
	if err != persist.ErrNotFound {
		return nil, nil, NewPersistenceError("failed reading cached order", err)
	}

	res, eerr := enumerate.Enumerate()
	if eerr != nil {
		if overflow, ok := eerr.(*enumerate.EncodingOverflowError); ok {
			return nil, nil, NewEncodingOverflow(overflow.Count, enumerate.MaxStates)
		}
		return nil, nil, NewPersistenceError("enumeration failed", eerr)
	}
	if werr := persist.WriteOrder(orderPath, res.States); werr != nil {
		log.Warn().Err(werr).Msg("failed to cache state order, continuing unsaved")
	}
	return res.States, res.Layers, nil
}

// defaultGPUThreshold sizes the GPU routing threshold off available
// system memory, mirroring the teacher's pbnjay/memory-driven sizing
// of TTableFractionOfMem in endgame/negamax.
func defaultGPUThreshold() int {
	total := memory.TotalMemory()
	if total == 0 {
		return 100_000
	}
	// Roughly one state's worth of f32 buffers (dep+in+out+words) per
	// 256 bytes of RAM, floored at a sane minimum.
	threshold := int(total / 256)
	if threshold < 10_000 {
		threshold = 10_000
	}
	return threshold
}
