package board

import (
	"fmt"

	"github.com/notnil/chess"
)

// A Square is an index 0..63 into the board. Files vary fastest:
// a1 = 0, b1 = 1, ..., h1 = 7, a2 = 8, ..., h8 = 63.
type Square int8

const (
	NumSquares = 64
	NoSquare   = Square(-1)
)

// Side is the color of a player. The numeric values double as the index of
// that side's half of a from-oracle output.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) Opposite() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

func sideOf(c chess.Color) Side {
	if c == chess.Black {
		return Black
	}
	return White
}

// File returns 0..7 for files a..h.
func (sq Square) File() int {
	return int(sq) % 8
}

// Rank returns 0..7 for ranks 1..8.
func (sq Square) Rank() int {
	return int(sq) / 8
}

func (sq Square) Valid() bool {
	return sq >= 0 && sq < NumSquares
}

// String returns the algebraic name of the square, e.g. 0 -> "a1".
func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("bad square %q", s)
	}
	return Square(int(s[1]-'1')*8 + int(s[0]-'a')), nil
}

// MustSquare is ParseSquare for literals known to be good.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}
