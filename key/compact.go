// Package key implements the compact 32-bit state encoding and the
// coarser PermaKey layer key described in spec.md §4.3, along with the
// total order that sorts states into contiguous, dependency-ordered
// layers.
package key

import (
	"github.com/bluebear94/ursolve/game"
)

// Compact is the bijective 32-bit encoding of a GameState. Only bits
// 0..30 are significant (31 bits); bit 31 is always zero. spec.md's
// prose calls this a "30-bit encoding" but its own bit ranges span
// 0..30 inclusive, 31 bits — see SPEC_FULL.md §3 for the resolution.
type Compact uint32

const (
	shiftMoverScore    = 28
	shiftOpponentScore = 25
	shiftMoverStart    = 21
	shiftMoverEnd      = 19
	shiftOpponentStart = 15
	shiftOpponentEnd   = 13

	maskScore = 0b111
	mask4     = 0b1111
	mask2     = 0b11
	maskSharedWord = 0b1_1111_1111_1111 // 13 bits
)

// Encode packs a GameState into its canonical 32-bit compact key.
func Encode(g game.GameState) Compact {
	var res uint32
	res |= uint32(g.MoverState.Score&maskScore) << shiftMoverScore
	res |= uint32(g.OpponentState.Score&maskScore) << shiftOpponentScore
	res |= uint32(g.MoverState.PrivateStart&mask4) << shiftMoverStart
	res |= uint32(g.MoverState.PrivateEnd&mask2) << shiftMoverEnd
	res |= uint32(g.OpponentState.PrivateStart&mask4) << shiftOpponentStart
	res |= uint32(g.OpponentState.PrivateEnd&mask2) << shiftOpponentEnd

	var shared uint32
	for i := 0; i < 8; i++ {
		digit := uint32(0)
		if g.SharedOcc[i] {
			if g.Shared[i] == game.Mover {
				digit = 1
			} else {
				digit = 2
			}
		}
		shared = shared*3 + digit
	}
	res |= shared & maskSharedWord
	return Compact(res)
}

// Decode reconstructs the GameState a compact key was built from. It is
// the exact inverse of Encode: Encode(Decode(k)) == k for every k
// produced by Encode (Testable Property 5).
func Decode(k Compact) game.GameState {
	bitsVal := uint32(k)

	moverScore := uint8((bitsVal >> shiftMoverScore) & maskScore)
	oppScore := uint8((bitsVal >> shiftOpponentScore) & maskScore)
	moverStart := uint8((bitsVal >> shiftMoverStart) & mask4)
	moverEnd := uint8((bitsVal >> shiftMoverEnd) & mask2)
	oppStart := uint8((bitsVal >> shiftOpponentStart) & mask4)
	oppEnd := uint8((bitsVal >> shiftOpponentEnd) & mask2)

	g := game.GameState{
		MoverState:    game.TeamState{PrivateStart: moverStart, PrivateEnd: moverEnd, Score: moverScore},
		OpponentState: game.TeamState{PrivateStart: oppStart, PrivateEnd: oppEnd, Score: oppScore},
	}

	shared := bitsVal & maskSharedWord
	for i := 7; i >= 0; i-- {
		digit := shared % 3
		shared /= 3
		switch digit {
		case 0:
		case 1:
			g.Shared[i] = game.Mover
			g.SharedOcc[i] = true
		case 2:
			g.Shared[i] = game.Opponent
			g.SharedOcc[i] = true
		}
	}
	return g
}

// Less orders two compact keys by the canonical sort: PermaKey ascending
// (per PermaKey's reversed-lexicographic Compare), then raw integer
// value, so that every layer occupies a contiguous range.
func Less(a, b Compact) bool {
	pa, pb := FromCompact(a), FromCompact(b)
	if c := pa.Compare(pb); c != 0 {
		return c < 0
	}
	return a < b
}
