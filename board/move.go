package board

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrMalformedMove = errors.New("malformed move text")
)

// PieceKind is a piece type without color.
type PieceKind int8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{' ', 'p', 'n', 'b', 'r', 'q', 'k'}

func kindOf(pt chess.PieceType) PieceKind {
	switch pt {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	}
	return NoKind
}

// Piece is a colored piece standing on a square.
type Piece struct {
	Kind PieceKind
	Side Side
}

// A Move is a source square, a destination square, and an optional
// promotion piece (NoKind when absent).
type Move struct {
	From  Square
	To    Square
	Promo PieceKind
}

// String returns coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promo != NoKind {
		s += string(kindLetters[m.Promo])
	}
	return s
}

// ParseMove parses coordinate notation without checking legality.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q':
			m.Promo = Queen
		case 'r':
			m.Promo = Rook
		case 'b':
			m.Promo = Bishop
		case 'n':
			m.Promo = Knight
		default:
			return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, s)
		}
	}
	return m, nil
}

func moveOf(cm *chess.Move) Move {
	return Move{
		From:  Square(cm.S1()),
		To:    Square(cm.S2()),
		Promo: kindOf(cm.Promo()),
	}
}
