package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nighty/mlchess/board"
)

var ErrBadPositionCommand = errors.New("bad position command")

// PositionArgs are the parsed arguments of a "position" command.
type PositionArgs struct {
	FEN   string // empty for the starting position
	Moves []string
}

// ParsePositionArgs parses
//
//	startpos [moves m1 m2 ...]
//	fen <six fen fields> [moves m1 m2 ...]
//
// Every move must be well-formed coordinate notation; legality is checked
// when the moves are replayed.
func ParsePositionArgs(fields []string) (PositionArgs, error) {
	var pa PositionArgs
	if len(fields) == 0 {
		return pa, fmt.Errorf("%w: expected startpos or fen", ErrBadPositionCommand)
	}
	rest := fields[1:]
	switch fields[0] {
	case "startpos":
	case "fen":
		end := len(rest)
		for i, f := range rest {
			if f == "moves" {
				end = i
				break
			}
		}
		if end == 0 {
			return pa, fmt.Errorf("%w: missing fen", ErrBadPositionCommand)
		}
		pa.FEN = strings.Join(rest[:end], " ")
		rest = rest[end:]
	default:
		return pa, fmt.Errorf("%w: expected startpos or fen, got %q", ErrBadPositionCommand, fields[0])
	}
	if len(rest) == 0 {
		return pa, nil
	}
	if rest[0] != "moves" {
		return pa, fmt.Errorf("%w: unexpected %q", ErrBadPositionCommand, rest[0])
	}
	for _, mv := range rest[1:] {
		if _, err := board.ParseMove(mv); err != nil {
			return pa, err
		}
		pa.Moves = append(pa.Moves, mv)
	}
	return pa, nil
}
