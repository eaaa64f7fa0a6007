// Package search picks moves with a fixed-depth, fixed-breadth negamax that
// only looks at the moves an oracle ranks highest. At every ply the oracle
// ranks source squares for the side to move and, for the best few sources,
// destination squares; the search walks the first few legal destinations of
// each and evaluates the leaves statically.
package search

import (
	"errors"
	"fmt"

	"github.com/nighty/mlchess/board"
)

const (
	Infinity = 10_000_000
	// TerminalScore is returned by a position that is already checkmate.
	TerminalScore = Infinity / 3
	// LeafMateBonus is added at the deepest ply when the move mates.
	LeafMateBonus = Infinity / 2
	// FallbackScore is reported when the root falls back to an arbitrary
	// legal move.
	FallbackScore = -100_000_000

	MaxDepth = 32
)

var ErrBadSearchConfig = errors.New("bad search config")

// Evaluator scores a position against a side: larger is worse for against.
// Leaves are evaluated against their side to move, which makes the score
// the one of the side that just moved.
type Evaluator interface {
	Evaluate(pos *board.Position, against board.Side) int
}

// Config bounds the search: MaxDepth plies, PieceBreadth source squares per
// ply and MoveBreadth legal destinations per source.
type Config struct {
	MaxDepth     int
	PieceBreadth int
	MoveBreadth  int
}

func DefaultConfig() Config {
	return Config{MaxDepth: 4, PieceBreadth: 6, MoveBreadth: 6}
}

func (c Config) Validate() error {
	switch {
	case c.MaxDepth < 1 || c.MaxDepth > MaxDepth:
		return fmt.Errorf("%w: depth %d not in [1, %d]", ErrBadSearchConfig, c.MaxDepth, MaxDepth)
	case c.PieceBreadth < 1 || c.PieceBreadth > board.NumSquares:
		return fmt.Errorf("%w: piece breadth %d not in [1, %d]", ErrBadSearchConfig, c.PieceBreadth, board.NumSquares)
	case c.MoveBreadth < 1 || c.MoveBreadth > board.NumSquares:
		return fmt.Errorf("%w: move breadth %d not in [1, %d]", ErrBadSearchConfig, c.MoveBreadth, board.NumSquares)
	}
	return nil
}

// Result is the outcome of a search call. Move is nil when the position was
// terminal.
type Result struct {
	Move  *board.Move
	Score int
}

func (r Result) String() string {
	if r.Move == nil {
		return fmt.Sprintf("(none) %d", r.Score)
	}
	return fmt.Sprintf("%s %d", r.Move, r.Score)
}
