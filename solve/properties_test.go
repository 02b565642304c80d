package solve

import (
	"context"
	"math"
	"testing"

	"github.com/matryer/is"

	"github.com/bluebear94/ursolve/enumerate"
	"github.com/bluebear94/ursolve/expr"
	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/internal/urconfig"
	"github.com/bluebear94/ursolve/key"
)

// referenceValue computes possible_moves(g) weighted-max-then-sum
// directly against an already-converged value vector, independent of
// expr.Evaluate, so TestGoalThreeMatchesExhaustiveTreeSearch is a real
// cross-check and not a restatement of the production evaluator.
func referenceValue(g game.GameState, index map[key.Compact]int, vals []float64) float64 {
	weights := expr.DiceWeights()
	total := 0.0
	for d := 0; d <= 4; d++ {
		outcomes := game.PossibleMoves(g, game.Roll{Delta: d})
		best := math.Inf(-1)
		for _, o := range outcomes {
			var v float64
			if o.Kind == game.MoveEnd {
				v = 1
			} else {
				i, ok := index[key.Encode(o.Next)]
				if !ok {
					panic("reference value: successor outside the enumerated state space")
				}
				v = vals[i]
				if o.TurnPassed {
					v = 1 - v
				}
			}
			if v > best {
				best = v
			}
		}
		total += weights[d] * best
	}
	return total
}

// referenceSolve runs an unlayered global value iteration straight over
// game.PossibleMoves, with no dependency windowing and no expr/gpu
// machinery, to stand in for "exhaustive enumeration cross-check via
// tree search" (Testable Property S4).
func referenceSolve(states []key.Compact, epsilon float64, maxIterations int) []float64 {
	n := len(states)
	index := make(map[key.Compact]int, n)
	for i, k := range states {
		index[k] = i
	}
	vals := make([]float64, n)
	buf := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		delta := 0.0
		for i, k := range states {
			buf[i] = referenceValue(key.Decode(k), index, vals)
			if d := math.Abs(buf[i] - vals[i]); d > delta {
				delta = d
			}
		}
		vals, buf = buf, vals
		if delta <= epsilon {
			break
		}
	}
	return vals
}

// withGoalScore temporarily overrides game.GoalScore for the duration
// of a test, restoring it afterward.
func withGoalScore(t *testing.T, goal uint8) {
	t.Helper()
	prev := game.GoalScore
	game.GoalScore = goal
	t.Cleanup(func() { game.GoalScore = prev })
}

// TestGoalThreeMatchesExhaustiveTreeSearch implements Testable Property
// S4: with GOAL_SCORE reduced to 3, the layered Driver pipeline must
// agree with an independent, unlayered global value iteration over the
// same exhaustively enumerated state space.
func TestGoalThreeMatchesExhaustiveTreeSearch(t *testing.T) {
	is := is.New(t)
	withGoalScore(t, 3)

	cfg := urconfig.Default()
	cfg.GoalScore = 3
	cfg.DataDir = t.TempDir()
	cfg.Epsilon = 1e-12
	cfg.GPUThreshold = 1 << 30 // force CPU-only: the GOAL=3 space is tiny
	cfg.Threads = 1

	d := &Driver{Config: cfg}
	got, err := d.Solve(context.Background())
	is.NoErr(err)

	want := referenceSolve(got.States, 1e-12, 10_000)

	is.Equal(len(got.Values), len(want))
	for i := range want {
		is.True(math.Abs(got.Values[i]-want[i]) < 1e-6)
	}
}

// TestInitialStateValueIsApproximatelyOneHalf implements Testable
// Property S1: by the symmetry of a fresh board, the mover's win
// probability at the initial state is close to 1/2.
func TestInitialStateValueIsApproximatelyOneHalf(t *testing.T) {
	is := is.New(t)
	withGoalScore(t, 3)

	res, err := enumerate.Enumerate()
	is.NoErr(err)
	vals := referenceSolve(res.States, 1e-12, 10_000)

	index := make(map[key.Compact]int, len(res.States))
	for i, k := range res.States {
		index[k] = i
	}
	initial, ok := index[key.Encode(game.New())]
	is.True(ok)
	is.True(math.Abs(vals[initial]-0.5) < 0.05)
}

// findWinningRollOne searches states for one where rolling a 1 wins
// outright (game.PossibleMoves collapses to the single MoveEnd
// outcome), matching spec.md S2's "mover at square 13, roll=Delta(1)
// scores" scenario without needing to hand-place a piece and guess
// whether the placement is reachable.
func findWinningRollOne(states []key.Compact) (key.Compact, bool) {
	for _, k := range states {
		outcomes := game.PossibleMoves(key.Decode(k), game.Roll{Delta: 1})
		if len(outcomes) == 1 && outcomes[0].Kind == game.MoveEnd {
			return k, true
		}
	}
	return 0, false
}

// TestNearWinValueExceedsInitialValue implements Testable Property S2:
// a position where rolling a 1 wins outright must have value at least
// weight(1) (the "vals[i] >= weight(that roll)*1 + ..." bound from
// spec.md's evaluator laws), and strictly greater than the initial
// state's value.
func TestNearWinValueExceedsInitialValue(t *testing.T) {
	is := is.New(t)
	withGoalScore(t, 3)

	res, err := enumerate.Enumerate()
	is.NoErr(err)
	vals := referenceSolve(res.States, 1e-12, 10_000)
	index := make(map[key.Compact]int, len(res.States))
	for i, k := range res.States {
		index[k] = i
	}

	nearKey, found := findWinningRollOne(res.States)
	if !found {
		t.Skip("no roll-of-1-wins position reachable at this GOAL_SCORE")
	}

	weights := expr.DiceWeights()
	nearIdx := index[nearKey]
	initialIdx, ok := index[key.Encode(game.New())]
	is.True(ok)

	is.True(vals[nearIdx] >= weights[1]-1e-9)
	is.True(vals[nearIdx] > vals[initialIdx])
}

// findAllNoOpState searches states for one where every one of the five
// rolls forces the single turn-passing no-op outcome (the successor is
// the position itself, flipped), matching spec.md's S3 scenario. Under
// game.MovePiece's rules no such position exists at any GOAL: the
// mover's frontmost piece always has a legal move for some roll of 1..4
// (only an opponent on the shared flower can block its landing square,
// and a piece on 10..13 can always score), and with nothing on the board
// a bench piece can always launch. The search therefore finds nothing
// and the S3 test below skips.
func findAllNoOpState(states []key.Compact) (key.Compact, bool) {
	for _, k := range states {
		g := key.Decode(k)
		allNoOp := true
		for d := 0; d <= 4; d++ {
			outcomes := game.PossibleMoves(g, game.Roll{Delta: d})
			if len(outcomes) != 1 || outcomes[0].Kind != game.MoveContinue || !outcomes[0].TurnPassed || outcomes[0].Next != g.Flipped() {
				allNoOp = false
				break
			}
		}
		if allNoOp {
			return k, true
		}
	}
	return 0, false
}

// TestAllNoOpPositionIsSelfComplementary implements Testable Property
// S3: a position where every roll is forced to be a no-op must satisfy
// v(g) = 1 - v(flip(g)), since the only reachable successor for every
// roll is the perspective flip itself.
func TestAllNoOpPositionIsSelfComplementary(t *testing.T) {
	is := is.New(t)
	withGoalScore(t, 6)

	res, err := enumerate.Enumerate()
	is.NoErr(err)

	k, found := findAllNoOpState(res.States)
	if !found {
		t.Skip("no all-no-op position reachable at this GOAL_SCORE; S3's formula is vacuously untested")
	}

	vals := referenceSolve(res.States, 1e-10, 10_000)
	index := make(map[key.Compact]int, len(res.States))
	for i, sk := range res.States {
		index[sk] = i
	}

	g := key.Decode(k)
	idx := index[k]
	flipIdx, ok := index[key.Encode(g.Flipped())]
	is.True(ok)
	is.True(math.Abs(vals[idx]-(1-vals[flipIdx])) < 1e-6)
}

