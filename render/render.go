// Package render draws an ASCII diagram of a GameState. It is a
// collaborator, not part of the solver's core contract (spec.md §6):
// the solver packages do not depend on it; cmd/urplay uses it.
package render

import (
	"fmt"
	"strings"

	"github.com/bluebear94/ursolve/game"
	"github.com/bluebear94/ursolve/game/strip"
)

// rowItem is either a strip index to draw, or a blank cell (the two
// squares in the middle of each side row that don't exist on the
// strip, since the side rows are each team's private squares plus the
// bench-facing gap over the shared lane).
type rowItem struct {
	index strip.Index
	blank bool
}

var sideRow = []rowItem{
	{index: 3}, {index: 2}, {index: 1}, {index: 0},
	{blank: true}, {blank: true},
	{index: 13}, {index: 12},
}

var midRow = []rowItem{
	{index: 4}, {index: 5}, {index: 6}, {index: 7},
	{index: 8}, {index: 9}, {index: 10}, {index: 11},
}

// Render draws g as a three-line ASCII board: the mover's private row,
// the shared row, and the opponent's private row. Each private row ends
// with that team's score; nothing marks whose turn it is.
func Render(g game.GameState) string {
	var b strings.Builder
	writeRow(&b, sideRow, func(i strip.Index) (game.Team, bool) {
		if g.MoverState.PrivateStart&(1<<uint(i)) != 0 || (i >= 12 && g.MoverState.PrivateEnd&(1<<uint(i-12)) != 0) {
			return game.Mover, true
		}
		return 0, false
	})
	fmt.Fprintf(&b, "   score: %d\n", g.MoverState.Score)

	writeRow(&b, midRow, func(i strip.Index) (game.Team, bool) {
		idx := int(i) - strip.SharedStart
		if g.SharedOcc[idx] {
			return g.Shared[idx], true
		}
		return 0, false
	})
	b.WriteString("\n")

	writeRow(&b, sideRow, func(i strip.Index) (game.Team, bool) {
		if g.OpponentState.PrivateStart&(1<<uint(i)) != 0 || (i >= 12 && g.OpponentState.PrivateEnd&(1<<uint(i-12)) != 0) {
			return game.Opponent, true
		}
		return 0, false
	})
	fmt.Fprintf(&b, "   score: %d\n", g.OpponentState.Score)

	return b.String()
}

func writeRow(b *strings.Builder, row []rowItem, occupant func(strip.Index) (game.Team, bool)) {
	for _, item := range row {
		if item.blank {
			b.WriteString("   ")
			continue
		}
		team, occupied := occupant(item.index)
		b.WriteString(cell(team, occupied, item.index.Kind()))
	}
}

// cell draws one square: a flower is parenthesized, a normal square
// bracketed, and both use a dash/asterisk placeholder when empty.
func cell(team game.Team, occupied bool, square strip.Square) string {
	if !occupied {
		if square == strip.Flower {
			return " * "
		}
		return " - "
	}
	letter := "M"
	if team == game.Opponent {
		letter = "O"
	}
	if square == strip.Flower {
		return "(" + letter + ")"
	}
	return "[" + letter + "]"
}
