// Package enumerate performs the reverse-closed BFS over the reachable
// game-state space described in spec.md §4.4: starting from the initial
// position, every successor of every roll is itself reachable, so the
// BFS closure from the initial state equals the full reachable set. The
// result is deduplicated, sorted into the canonical key.Less order, and
// partitioned into contiguous PermaKey layers.
package enumerate

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/key"
)

// MaxStates is the largest state count that fits a 29-bit variable
// index in the expression stream (spec.md §7, EncodingOverflow).
const MaxStates = 1 << 29

// Layer is a contiguous range of the sorted state vector sharing one
// PermaKey.
type Layer struct {
	Key        key.PermaKey
	Start, End int // [Start, End) into the state vector
}

// Result is the enumerator's output: the sorted, deduplicated compact
// state vector and its layer table.
type Result struct {
	States []key.Compact
	Layers []Layer
}

// EncodingOverflowError is returned when the reachable state count
// exceeds MaxStates.
type EncodingOverflowError struct {
	Count int
}

func (e *EncodingOverflowError) Error() string {
	return fmt.Sprintf("enumerate: %d reachable states exceeds the %d-state encoding limit", e.Count, MaxStates)
}

// Enumerate runs the BFS from the initial position and returns the
// sorted states and their layer partition.
func Enumerate() (*Result, error) {
	seen := make(map[key.Compact]struct{})
	start := key.Encode(game.New())
	queue := []key.Compact{start}
	seen[start] = struct{}{}

	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		g := key.Decode(cur)
		for _, succ := range successors(g) {
			ck := key.Encode(succ)
			if _, ok := seen[ck]; ok {
				continue
			}
			seen[ck] = struct{}{}
			if len(seen) > MaxStates {
				return nil, &EncodingOverflowError{Count: len(seen)}
			}
			queue = append(queue, ck)
		}
	}

	states := lo.Keys(seen)
	sort.Slice(states, func(i, j int) bool { return key.Less(states[i], states[j]) })

	layers := buildLayers(states)
	return &Result{States: states, Layers: layers}, nil
}

// successors enumerates every state reachable from g in one roll+move,
// i.e. every non-terminal Outcome.Next across every roll (spec.md §4.4's
// "successors are every continuation of every roll").
func successors(g game.GameState) []game.GameState {
	var out []game.GameState
	for _, roll := range game.AllRolls() {
		for _, outcome := range game.PossibleMoves(g, roll) {
			if outcome.Kind == game.MoveContinue {
				out = append(out, outcome.Next)
			}
		}
	}
	return out
}

// BuildLayersFor rebuilds the layer table for a state vector that was
// already sorted and persisted by a prior Enumerate call (spec.md §6's
// resume-from-cache path only persists the state vector, not the layer
// table, so it is cheap to recompute from the sorted order).
func BuildLayersFor(states []key.Compact) []Layer {
	return buildLayers(states)
}

// buildLayers groups the sorted states by PermaKey into contiguous
// ranges. Because states is already sorted by key.Less (which sorts by
// PermaKey first), equal PermaKeys are guaranteed adjacent.
func buildLayers(states []key.Compact) []Layer {
	if len(states) == 0 {
		return nil
	}
	layers := make([]Layer, 0, 64)
	start := 0
	cur := key.FromCompact(states[0])
	for i := 1; i < len(states); i++ {
		pk := key.FromCompact(states[i])
		if pk.Compare(cur) != 0 {
			layers = append(layers, Layer{Key: cur, Start: start, End: i})
			start = i
			cur = pk
		}
	}
	layers = append(layers, Layer{Key: cur, Start: start, End: len(states)})
	return layers
}
