// Package expr compiles, for every state in a layer, a flat stream of
// 32-bit terms encoding the Bellman expression for each of the five
// dice rolls, per spec.md §4.5. The same word stream and evaluation
// loop are shared verbatim by the CPU and GPU evaluators in solve/.
package expr

import (
	"gonum.org/v1/gonum/stat/combin"

	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/key"
)

// Word is one 32-bit term in the expression stream.
type Word uint32

const (
	bitEndOfGroup = 1 << 31
	bitInverse    = 1 << 30
	bitWin        = 1 << 29
	indexMask     = (1 << 29) - 1
)

func term(index uint32, inverse, end, win bool) Word {
	var w uint32
	if win {
		w |= bitWin
	} else {
		w |= index & indexMask
	}
	if inverse {
		w |= bitInverse
	}
	if end {
		w |= bitEndOfGroup
	}
	return Word(w)
}

// NewTerm builds a single expression word directly, for callers (such
// as synthetic test harnesses) that need to construct a Program without
// going through Compile.
func NewTerm(index uint32, inverse, end, win bool) Word {
	return term(index, inverse, end, win)
}

// IsEndOfGroup, IsInverse, IsWin and Index decode a term's tag bits and
// variable reference.
func (w Word) IsEndOfGroup() bool { return uint32(w)&bitEndOfGroup != 0 }
func (w Word) IsInverse() bool    { return uint32(w)&bitInverse != 0 }
func (w Word) IsWin() bool        { return uint32(w)&bitWin != 0 }
func (w Word) Index() uint32      { return uint32(w) & indexMask }

// DiceWeights returns the five roll weights [w0..w4]/16, derived from
// the binomial coefficients C(4,k) for k=0..4 (four independent fair
// coins determine the roll total), rather than a hand-copied literal.
func DiceWeights() [5]float64 {
	var w [5]float64
	for k := 0; k <= 4; k++ {
		w[k] = float64(combin.Binomial(4, k)) / 16.0
	}
	return w
}

// Universe maps a compact state key to its position in the value
// vector, across both the frozen-dependency range and the layer's own
// range, so the compiler can emit a variable index regardless of which
// side of the dependency boundary a successor falls on.
type Universe struct {
	indexOf map[key.Compact]uint32
}

// NewUniverse builds a Universe from the states visible to a layer:
// the frozen dependency slice states[depStart:start] followed by the
// layer's own states[start:end], in that global index order. states
// must be indexed by absolute position in the full sorted state vector.
func NewUniverse(states []key.Compact, depStart, end int) Universe {
	u := Universe{indexOf: make(map[key.Compact]uint32, end-depStart)}
	for i := depStart; i < end; i++ {
		u.indexOf[states[i]] = uint32(i)
	}
	return u
}

// Lookup returns the global value-vector index for a compact key, and
// whether it was found in the universe at all (a successor outside the
// universe indicates an enumeration or layering bug).
func (u Universe) Lookup(k key.Compact) (uint32, bool) {
	idx, ok := u.indexOf[k]
	return idx, ok
}

// Program is the compiled expression stream for one layer: a flat word
// vector plus, for each state in the layer (in layer-local order), the
// byte-equivalent word offset where its five roll groups begin.
type Program struct {
	Words  []Word
	Starts []int // Starts[j] indexes into Words for layer-local state j
}

// Compile builds the Program for the states in states[start:end], whose
// successors must all resolve within universe (spec.md §4.5).
func Compile(states []key.Compact, start, end int, universe Universe) (Program, error) {
	prog := Program{Starts: make([]int, 0, end-start)}
	for i := start; i < end; i++ {
		prog.Starts = append(prog.Starts, len(prog.Words))
		g := key.Decode(states[i])
		for _, roll := range game.AllRolls() {
			words, err := compileGroup(g, roll, universe)
			if err != nil {
				return Program{}, err
			}
			prog.Words = append(prog.Words, words...)
		}
	}
	return prog, nil
}

// compileGroup emits the term list for one roll group, per spec.md
// §4.5's rules: a winning continuation collapses the whole group to a
// single win term; otherwise one term per legal outcome, with the last
// term's end-of-group bit set.
func compileGroup(g game.GameState, roll game.Roll, universe Universe) ([]Word, error) {
	outcomes := game.PossibleMoves(g, roll)
	if len(outcomes) == 1 && outcomes[0].Kind == game.MoveEnd {
		return []Word{term(0, false, true, true)}, nil
	}
	words := make([]Word, 0, len(outcomes))
	for i, o := range outcomes {
		idx, ok := universe.Lookup(key.Encode(o.Next))
		if !ok {
			return nil, &MissingSuccessorError{State: key.Encode(g), Roll: roll.Delta}
		}
		end := i == len(outcomes)-1
		words = append(words, term(idx, o.TurnPassed, end, false))
	}
	return words, nil
}

// Evaluate computes v[j] for the j-th state in a compiled Program,
// given a function that resolves a global variable index to its
// current value (spec.md §4.5's evaluator loop, shared verbatim by the
// CPU and GPU backends).
func Evaluate(prog Program, j int, lookup func(idx uint32) float64) float64 {
	weights := DiceWeights()
	i := prog.Starts[j]
	sum := 0.0
	groupMax := negInf
	r := 0
	for ; r < 5; i++ {
		w := prog.Words[i]
		v := 1.0
		if !w.IsWin() {
			v = lookup(w.Index())
		}
		if w.IsInverse() {
			v = 1 - v
		}
		if v > groupMax {
			groupMax = v
		}
		if w.IsEndOfGroup() {
			sum += weights[r] * groupMax
			r++
			groupMax = negInf
		}
	}
	return sum
}

const negInf = -1e300

// MissingSuccessorError marks a compiler bug: a successor state fell
// outside the universe passed to Compile (an enumeration/layering
// inconsistency, not a runtime data problem).
type MissingSuccessorError struct {
	State key.Compact
	Roll  int
}

func (e *MissingSuccessorError) Error() string {
	return "expr: successor of state outside dependency/layer universe"
}
