// Package eval contains the static evaluator used at the leaves of the
// search: material plus piece-square tables, with separate pawn and king
// tables once the position reaches an endgame.
package eval

import (
	"github.com/samber/lo"

	"github.com/nighty/mlchess/board"
)

// Bound is the largest magnitude Evaluate returns. It stays well below the
// search's terminal and mate scores so those always dominate.
const Bound = 100000

var pieceValues = [...]int{
	board.NoKind: 0,
	board.Pawn:   100,
	board.Knight: 320,
	board.Bishop: 330,
	board.Rook:   500,
	board.Queen:  900,
	board.King:   0,
}

// Tables are laid out as printed, rank 8 first, from White's point of view.
var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pawnEndgameTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	100, 100, 100, 100, 100, 100, 100, 100,
	60, 60, 60, 60, 60, 60, 60, 60,
	40, 40, 40, 40, 40, 40, 40, 40,
	20, 20, 20, 30, 30, 20, 20, 20,
	10, 10, 10, 10, 10, 10, 10, 10,
	5, 5, 5, 5, 5, 5, 5, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenTable = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgameTable = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgameTable = [64]int{
	-50, -30, -30, -30, -30, -30, -30, -50,
	-30, -20, 0, 0, 0, 0, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

// endgameMaterial is the non-pawn material (both sides, kings excluded) at
// or below which the endgame tables apply.
const endgameMaterial = 2 * (500 + 330)

// tableIndex maps a square to its entry in a printed table for side s.
func tableIndex(sq board.Square, s board.Side) int {
	if s == board.White {
		return (7-sq.Rank())*8 + sq.File()
	}
	return sq.Rank()*8 + sq.File()
}

// Evaluator is a stateless static evaluator.
type Evaluator struct{}

func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores pos against the given side: larger is worse for against
// and better for its opponent. The search passes the side to move of a leaf,
// so the leaf is judged for the player who just moved. The score is always
// within [-Bound, Bound].
func (e *Evaluator) Evaluate(pos *board.Position, against board.Side) int {
	var pieces [board.NumSquares]board.Piece
	var occupied [board.NumSquares]bool
	nonPawn := 0
	for sq := board.Square(0); sq < board.NumSquares; sq++ {
		pc, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		pieces[sq], occupied[sq] = pc, true
		if pc.Kind != board.Pawn {
			nonPawn += pieceValues[pc.Kind]
		}
	}
	endgame := nonPawn <= endgameMaterial

	var side [2]int
	for sq := board.Square(0); sq < board.NumSquares; sq++ {
		if !occupied[sq] {
			continue
		}
		pc := pieces[sq]
		side[pc.Side] += pieceValues[pc.Kind] + squareValue(pc, sq, endgame)
	}
	return lo.Clamp(side[against.Opposite()]-side[against], -Bound, Bound)
}

func squareValue(pc board.Piece, sq board.Square, endgame bool) int {
	i := tableIndex(sq, pc.Side)
	switch pc.Kind {
	case board.Pawn:
		if endgame {
			return pawnEndgameTable[i]
		}
		return pawnTable[i]
	case board.Knight:
		return knightTable[i]
	case board.Bishop:
		return bishopTable[i]
	case board.Rook:
		return rookTable[i]
	case board.Queen:
		return queenTable[i]
	case board.King:
		if endgame {
			return kingEndgameTable[i]
		}
		return kingMidgameTable[i]
	}
	return 0
}
