package game

import (
	"testing"

	"github.com/matryer/is"

	"github.com/bluebear94/ursolve/game/strip"
)

func TestInitialStateHasNoPieces(t *testing.T) {
	is := is.New(t)
	g := New()
	is.Equal(g.MoverOnBoard(), 0)
	is.Equal(g.OpponentOnBoard(), 0)
	is.Equal(g.MoverRemaining(), int(GoalScore))
}

func TestLaunchPlacesOnEntrySquare(t *testing.T) {
	is := is.New(t)
	g := New()
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceLaunch}, 3)
	is.True(ok)
	is.Equal(res.Kind, MoveContinue)
	is.True(res.Game.occupiedByMoverAt(2)) // delta 3 -> index 2
}

func TestLandingOnOwnPieceIsRejected(t *testing.T) {
	is := is.New(t)
	g := New()
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceLaunch}, 1)
	is.True(ok)
	g = res.Game
	_, ok = g.MovePiece(strip.MoveSource{Kind: strip.SourceLaunch}, 1)
	is.True(!ok)
}

func TestFlowerGrantsExtraTurn(t *testing.T) {
	is := is.New(t)
	g := New()
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceLaunch}, 4) // lands on index 3, a flower
	is.True(ok)
	is.True(res.KeepTurn)
}

func TestSharedFlowerIsSafeFromCapture(t *testing.T) {
	is := is.New(t)
	g := New()
	g.MoverState.PrivateStart = 1 << 3 // mover occupies square 3
	g.Shared[3] = Opponent             // opponent occupies index 7 (sharedIndex 3)
	g.SharedOcc[3] = true
	_, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceIndex, Index: 3}, 4)
	is.True(!ok)
}

func TestCaptureOnNonFlowerSharedSquare(t *testing.T) {
	is := is.New(t)
	g := New()
	g.MoverState.PrivateStart = 1 << 1 // mover occupies square 1
	g.Shared[0] = Opponent             // opponent occupies index 4
	g.SharedOcc[0] = true
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceIndex, Index: 1}, 3)
	is.True(ok)
	is.Equal(res.Kind, MoveContinue)
	is.True(res.Game.occupiedByMoverAt(4))
	is.Equal(res.Game.Shared[0], Mover)
}

func TestScoringIncrementsScoreAndPassesTurn(t *testing.T) {
	is := is.New(t)
	g := New()
	g.MoverState.PrivateEnd = 0b10 // occupy square 13
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceIndex, Index: 13}, 1)
	is.True(ok)
	is.Equal(res.Kind, MoveContinue)
	is.Equal(res.Game.MoverState.Score, uint8(1))
	is.True(!res.KeepTurn)
}

func TestWinningMoveYieldsEnd(t *testing.T) {
	is := is.New(t)
	g := New()
	g.MoverState.Score = GoalScore - 1
	g.MoverState.PrivateEnd = 0b10 // square 13
	res, ok := g.MovePiece(strip.MoveSource{Kind: strip.SourceIndex, Index: 13}, 1)
	is.True(ok)
	is.Equal(res.Kind, MoveEnd)
}

func TestPossibleMovesZeroRollPassesTurn(t *testing.T) {
	is := is.New(t)
	g := New()
	outcomes := PossibleMoves(g, Roll{0})
	is.Equal(len(outcomes), 1)
	is.Equal(outcomes[0].Kind, MoveContinue)
	is.Equal(outcomes[0].Next, g.Flipped())
}

func TestPossibleMovesNoLegalMoveIsNoOp(t *testing.T) {
	is := is.New(t)
	g := New()
	// Mover has pieces on squares 12 and 13 and none left on the bench:
	// a roll of 4 overshoots home from both squares and there is nothing
	// to launch, so no move is legal.
	g.MoverState.PrivateEnd = 0b11 // squares 12 and 13
	g.MoverState.Score = GoalScore - 2
	outcomes := PossibleMoves(g, Roll{4})
	is.Equal(len(outcomes), 1)
	is.Equal(outcomes[0].Kind, MoveContinue)
	is.Equal(outcomes[0].Next, g.Flipped())
}

func TestFlippedSwapsMoverAndOpponent(t *testing.T) {
	is := is.New(t)
	g := New()
	g.MoverState.Score = 3
	g.OpponentState.Score = 5
	g.Shared[2] = Mover
	g.SharedOcc[2] = true
	f := g.Flipped()
	is.Equal(f.MoverState.Score, uint8(5))
	is.Equal(f.OpponentState.Score, uint8(3))
	is.Equal(f.Shared[2], Opponent)
	is.Equal(f.Flipped(), g)
}
