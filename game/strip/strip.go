// Package strip implements the board algebra for the 14-square Royal Game
// of Ur strip: square kinds, die-delta application, and move-source
// enumeration. It has no notion of two players or turn order; that lives
// in the game package one level up.
package strip

// NumSquares is the length of one team's track, indices 0..13.
const NumSquares = 14

// SharedStart and SharedEnd bound the squares both teams can land on,
// inclusive. Squares outside this range belong exclusively to one team.
const (
	SharedStart = 4
	SharedEnd   = 11
)

// Index identifies a square on a team's own strip, 0..13.
type Index uint8

// Flower squares are safe: landing on one grants an extra turn, and the
// shared flower at 7 additionally forbids capture.
const (
	FlowerA = 3
	FlowerB = 7
	FlowerC = 13
)

// Square describes whether an index is a flower square.
type Square uint8

const (
	Normal Square = iota
	Flower
)

// Kind reports whether i is a flower square.
func (i Index) Kind() Square {
	switch i {
	case FlowerA, FlowerB, FlowerC:
		return Flower
	default:
		return Normal
	}
}

// SharedAccessible reports whether both teams may occupy this index.
func (i Index) SharedAccessible() bool {
	return i >= SharedStart && i <= SharedEnd
}

// DeltaResultKind tags the outcome of applying a delta to a position.
type DeltaResultKind uint8

const (
	ResultIndex DeltaResultKind = iota
	ResultScore
	ResultOutOfBounds
)

// DeltaResult is the outcome of moving a piece by a die delta.
type DeltaResult struct {
	Kind  DeltaResultKind
	Index Index // valid only when Kind == ResultIndex
}

// ApplyDelta advances a square index by d (1..4), per spec.md §4.1:
// landing exactly on square 14 scores the piece, and anything past 14
// is rejected.
func (i Index) ApplyDelta(d int) DeltaResult {
	newI := int(i) + d
	switch {
	case newI >= 0 && newI <= 13:
		return DeltaResult{Kind: ResultIndex, Index: Index(newI)}
	case newI == 14:
		return DeltaResult{Kind: ResultScore}
	default:
		return DeltaResult{Kind: ResultOutOfBounds}
	}
}

// Launch places a bench piece onto the track at square d-1, for d in 1..4.
func Launch(d int) Index {
	return Index(d - 1)
}

// MoveSourceKind distinguishes a bench launch from a move of an
// already-placed piece.
type MoveSourceKind uint8

const (
	SourceLaunch MoveSourceKind = iota
	SourceIndex
)

// MoveSource is where a piece comes from: the bench, or an occupied
// square.
type MoveSource struct {
	Kind  MoveSourceKind
	Index Index // valid only when Kind == SourceIndex
}

// ApplyDelta resolves a move from this source by die delta d.
func (s MoveSource) ApplyDelta(d int) DeltaResult {
	if s.Kind == SourceLaunch {
		return DeltaResult{Kind: ResultIndex, Index: Launch(d)}
	}
	return s.Index.ApplyDelta(d)
}

// AllSources enumerates every possible move source: the bench launch,
// followed by every track index 0..13. Callers filter by occupancy.
func AllSources() []MoveSource {
	sources := make([]MoveSource, 0, NumSquares+1)
	sources = append(sources, MoveSource{Kind: SourceLaunch})
	for i := Index(0); i < NumSquares; i++ {
		sources = append(sources, MoveSource{Kind: SourceIndex, Index: i})
	}
	return sources
}
