// Package oracle provides the move-ranking predictions the search is guided
// by. A from-prediction scores all 64 squares for each side as the square a
// piece should move from; a to-prediction, conditioned on a source square,
// scores the 64 destinations.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/nighty/mlchess/board"
)

const (
	FromOutputLen = 2 * board.NumSquares
	ToOutputLen   = board.NumSquares
)

var (
	ErrNoModel   = errors.New("no model")
	ErrBadOutput = errors.New("unexpected oracle output")
)

// Features is the encoded board fed to the models: one value per square.
type Features [board.NumSquares]float32

// ToQuery asks for the destination scores of one source square.
type ToQuery struct {
	Board  Features
	Source board.Square
}

// Oracle is a batched predictor. PredictFrom returns FromOutputLen scores per
// input (White's 64 squares, then Black's); PredictTo returns ToOutputLen
// scores per query.
type Oracle interface {
	PredictFrom(ctx context.Context, batch []Features) ([][]float32, error)
	PredictTo(ctx context.Context, queries []ToQuery) ([][]float32, error)
}

// Piece codes as the models were trained on them: White 1..6, Black 7..12,
// in the order pawn, rook, knight, bishop, queen, king.
var pieceCode = [...]float32{
	board.NoKind: 0,
	board.Pawn:   1,
	board.Rook:   2,
	board.Knight: 3,
	board.Bishop: 4,
	board.Queen:  5,
	board.King:   6,
}

const blackOffset = 6

// Encode returns the features of pos. Empty squares are 0.
func Encode(pos *board.Position) Features {
	var f Features
	for sq := board.Square(0); sq < board.NumSquares; sq++ {
		pc, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		code := pieceCode[pc.Kind]
		if pc.Side == board.Black {
			code += blackOffset
		}
		f[sq] = code
	}
	return f
}

func split(flat []float32, n, width int) ([][]float32, error) {
	if len(flat) != n*width {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrBadOutput, len(flat), n*width)
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = flat[i*width : (i+1)*width : (i+1)*width]
	}
	return out, nil
}
