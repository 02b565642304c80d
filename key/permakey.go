package key

import (
	"github.com/bluebear94/ursolve/game"
)

// teamKey is one team's sort key: (score, end-bits), compared
// lexicographically to decide which team is "gt" (greater) for a given
// GameState, per spec.md §4.3.
type teamKey struct {
	score   uint8
	endBits uint8
	// startBits breaks a (score, endBits) tie in less and is carried into
	// FocusToken's Start variant; PermaKey.Compare does not read it from
	// Gt/Lt.
	startBits uint8
}

func (a teamKey) less(b teamKey) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	if a.endBits != b.endBits {
		return a.endBits < b.endBits
	}
	return a.startBits < b.startBits
}

func teamKeyOf(t game.TeamState) teamKey {
	return teamKey{score: t.Score, endBits: t.PrivateEnd & 0b11, startBits: t.PrivateStart & 0b1111}
}

// FocusKind tags which shape a FocusToken has.
type FocusKind uint8

const (
	FocusStart FocusKind = iota
	FocusShared
)

// FocusToken is the tie-breaking component of a PermaKey, derived from
// the highest-occupied square among indices 0..11 combined across both
// teams. See spec.md §4.3.
type FocusToken struct {
	Kind FocusKind

	// valid when Kind == FocusStart
	StartGt uint8
	StartLt uint8

	// valid when Kind == FocusShared
	SharedIndex int // 4..11; for a flower-marked token, the second-highest occupied index (4..6)

	MaxIsFlower bool
	// SecondHighest is the highest occupied shared index below 7 (4..6)
	// when MaxIsFlower is true; -1 when no such square is occupied or
	// MaxIsFlower is false.
	SecondHighest int
}

func compareFocusToken(a, b FocusToken) int {
	aIdx, aIsVirtual := focusEffectiveIndex(a)
	bIdx, bIsVirtual := focusEffectiveIndex(b)
	if aIsVirtual || bIsVirtual {
		if aIdx != bIdx {
			return cmpInt(aIdx, bIdx)
		}
		// Both resolve to the same effective index: either two plain
		// Shared tokens on the same square, which compare equal, or two
		// flower-marked tokens (a literal Shared(7) token never arises,
		// see spec.md §4.3), which break the tie on the second-highest
		// index.
		if a.MaxIsFlower && b.MaxIsFlower {
			return cmpInt(a.SecondHighest, b.SecondHighest)
		}
		return 0
	}
	// Neither is shared/flower: both are Start tokens (or one Start,
	// handled by the -1 sentinel from focusEffectiveIndex).
	if a.StartGt != b.StartGt {
		return cmpInt(int(a.StartGt), int(b.StartGt))
	}
	return cmpInt(int(a.StartLt), int(b.StartLt))
}

// focusEffectiveIndex returns the index used for cross-kind comparison:
// a flower-marked token compares as Shared(7) regardless of its
// SecondHighest tie-breaker (spec.md §4.3), and a Start token compares
// as "lower than any Shared index" via the sentinel -1.
func focusEffectiveIndex(f FocusToken) (idx int, isSharedLike bool) {
	if f.MaxIsFlower {
		return 7, true
	}
	if f.Kind == FocusShared {
		return f.SharedIndex, true
	}
	return -1, false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// newFocusToken derives the focus token for a GameState, given the
// already-computed gt/lt start bits (so the Start variant can carry
// them without recomputing which team is gt).
func newFocusToken(g game.GameState, startGt, startLt uint8) FocusToken {
	highest := highestOccupied(g, 12)
	if highest < 0 || highest < 4 {
		return FocusToken{Kind: FocusStart, StartGt: startGt, StartLt: startLt, SecondHighest: -1}
	}
	if highest == 7 {
		second := highestOccupied(g, 7)
		if second < 0 || second < 4 {
			return FocusToken{Kind: FocusStart, StartGt: startGt, StartLt: startLt, MaxIsFlower: true, SecondHighest: -1}
		}
		return FocusToken{Kind: FocusShared, SharedIndex: second, MaxIsFlower: true, SecondHighest: second}
	}
	return FocusToken{Kind: FocusShared, SharedIndex: highest, SecondHighest: -1}
}

// highestOccupied returns the highest strip index in [0, limit) occupied
// by either team, or -1 if none.
func highestOccupied(g game.GameState, limit int) int {
	highest := -1
	for i := 0; i < limit && i < 4; i++ {
		if g.MoverState.PrivateStart&(1<<uint(i)) != 0 || g.OpponentState.PrivateStart&(1<<uint(i)) != 0 {
			highest = i
		}
	}
	for i := 4; i < limit && i < 12; i++ {
		if g.SharedOcc[i-4] {
			highest = i
		}
	}
	return highest
}

// PermaKey is the coarser layer key: two team-sorted (score, end-bits)
// pairs plus a focus token, defining the value-iteration layer partition
// and a strict partial dependency order over layers (spec.md §4.3).
type PermaKey struct {
	Gt, Lt teamKey
	Focus  FocusToken
}

// FromGame derives the PermaKey of a GameState directly.
func FromGame(g game.GameState) PermaKey {
	prot := teamKeyOf(g.MoverState)
	opp := teamKeyOf(g.OpponentState)
	gt, lt := prot, opp
	if prot.less(opp) {
		gt, lt = opp, prot
	}
	focus := newFocusToken(g, gt.startBits, lt.startBits)
	return PermaKey{Gt: gt, Lt: lt, Focus: focus}
}

// FromCompact derives the PermaKey of a compact-encoded state.
func FromCompact(k Compact) PermaKey {
	return FromGame(Decode(k))
}

// Compare implements the total order from spec.md §4.3: compare
// (gt.score, gt.endBits, lt.score, lt.endBits, focus) lexicographically,
// then reverse the result, so the near-terminal layers (solved first)
// sort first and the initial position sorts last of all.
func (p PermaKey) Compare(o PermaKey) int {
	c := cmpInt(int(p.Gt.score), int(o.Gt.score))
	if c == 0 {
		c = cmpInt(int(p.Gt.endBits), int(o.Gt.endBits))
	}
	if c == 0 {
		c = cmpInt(int(p.Lt.score), int(o.Lt.score))
	}
	if c == 0 {
		c = cmpInt(int(p.Lt.endBits), int(o.Lt.endBits))
	}
	if c == 0 {
		c = compareFocusToken(p.Focus, o.Focus)
	}
	return -c
}

// ReachableInOneMoveFrom reports whether p is a legal one-move successor
// layer reachable from other: the two teams' scores (in gt/lt-sorted
// form) changed by at most one point, on at most one team. Because gt/lt
// can only swap between two keys when scores are tied, comparing the
// stored (gt, lt) pairs directly — without searching for a relabeling —
// is sufficient (see original_source/src/solve/perma.rs).
func (p PermaKey) ReachableInOneMoveFrom(other PermaKey) bool {
	if p.Gt.score < other.Gt.score || p.Lt.score < other.Lt.score {
		return false
	}
	dGt := int(p.Gt.score) - int(other.Gt.score)
	dLt := int(p.Lt.score) - int(other.Lt.score)
	switch {
	case dGt == 0 && dLt == 0:
		return true
	case dGt == 1 && dLt == 0:
		return true
	case dGt == 0 && dLt == 1:
		return true
	default:
		return false
	}
}
