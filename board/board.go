// Package board adapts the chess rules engine to the small surface the
// search needs: legal moves, applying a move, and terminal status.
package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
	"github.com/samber/lo"
)

// Status of a position with respect to the side to move.
type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	}
	return "ongoing"
}

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// A Position is an immutable chess position. Applying a move returns a new
// Position and leaves the receiver untouched.
type Position struct {
	pos *chess.Position

	// lazily built; generation order is kept for LegalMoves.
	moves []*chess.Move
	legal map[Move]*chess.Move
}

func newPosition(p *chess.Position) *Position {
	return &Position{pos: p}
}

// StartingPosition returns the standard initial position.
func StartingPosition() *Position {
	return newPosition(chess.NewGame().Position())
}

// PositionFromFEN parses a FEN string.
func PositionFromFEN(fen string) (*Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("bad fen %q: %w", fen, err)
	}
	return newPosition(chess.NewGame(opt).Position()), nil
}

func (p *Position) index() map[Move]*chess.Move {
	if p.legal == nil {
		p.moves = p.pos.ValidMoves()
		p.legal = make(map[Move]*chess.Move, len(p.moves))
		for _, cm := range p.moves {
			p.legal[moveOf(cm)] = cm
		}
	}
	return p.legal
}

// LegalMoves enumerates the legal moves in the rules engine's own order.
func (p *Position) LegalMoves() []Move {
	p.index()
	return lo.Map(p.moves, func(cm *chess.Move, _ int) Move {
		return moveOf(cm)
	})
}

// NumLegalMoves is len(LegalMoves()) without the copy.
func (p *Position) NumLegalMoves() int {
	return len(p.index())
}

// IsLegal reports whether m is legal here. A pawn move to the last rank is
// only legal with its promotion piece set.
func (p *Position) IsLegal(m Move) bool {
	_, ok := p.index()[m]
	return ok
}

// Apply plays a legal move and returns the resulting position.
func (p *Position) Apply(m Move) (*Position, error) {
	cm, ok := p.index()[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, p.FEN())
	}
	return newPosition(p.pos.Update(cm)), nil
}

func (p *Position) Status() Status {
	switch p.pos.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	return Ongoing
}

func (p *Position) SideToMove() Side {
	return sideOf(p.pos.Turn())
}

// PieceAt returns the piece on sq, if any.
func (p *Position) PieceAt(sq Square) (Piece, bool) {
	pc := p.pos.Board().Piece(chess.Square(sq))
	if pc == chess.NoPiece {
		return Piece{}, false
	}
	return Piece{Kind: kindOf(pc.Type()), Side: sideOf(pc.Color())}, true
}

func (p *Position) FEN() string {
	return p.pos.String()
}

// ToDisplayText draws the board with white at the bottom.
func (p *Position) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString(p.pos.Board().Draw())
	sb.WriteString("fen: ")
	sb.WriteString(p.FEN())
	sb.WriteString("\n")
	sb.WriteString(p.SideToMove().String() + " to move\n")
	return sb.String()
}
