package search

import (
	"github.com/nighty/mlchess/board"
)

// Resolve returns the legalOrdinal-th (1-based) legal move from the source
// at sourceOrdinal, scanning its destinations in ranked order. It reports
// false once all 64 destinations are exhausted. Moves are built without a
// promotion piece, so promotions never resolve.
func Resolve(pos *board.Position, b *Bundle, sourceOrdinal, legalOrdinal int) (board.Move, bool) {
	if sourceOrdinal < 0 || sourceOrdinal >= len(b.Destinations) || legalOrdinal < 1 {
		return board.Move{}, false
	}
	src := b.Sources[sourceOrdinal]
	hits := 0
	for _, dst := range b.Destinations[sourceOrdinal] {
		m := board.Move{From: src, To: dst}
		if !pos.IsLegal(m) {
			continue
		}
		hits++
		if hits == legalOrdinal {
			return m, true
		}
	}
	return board.Move{}, false
}
