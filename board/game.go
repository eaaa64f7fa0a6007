package board

import (
	"fmt"

	"github.com/notnil/chess"
)

// Game is the position history owned by an engine between external moves.
// It is replaced wholesale on reset or on replay of a move list.
type Game struct {
	startFEN string
	game     *chess.Game
	played   []Move
}

func NewGame() *Game {
	g := &Game{}
	g.Reset()
	return g
}

// Reset goes back to the standard starting position.
func (g *Game) Reset() {
	g.startFEN = StartFEN
	g.game = chess.NewGame()
	g.played = nil
}

// LoadFEN starts a new game from the given position.
func (g *Game) LoadFEN(fen string) error {
	opt, err := chess.FEN(fen)
	if err != nil {
		return fmt.Errorf("bad fen %q: %w", fen, err)
	}
	g.startFEN = fen
	g.game = chess.NewGame(opt)
	g.played = nil
	return nil
}

// Play applies a move given in coordinate notation, e.g. "e2e4".
func (g *Game) Play(text string) error {
	m, err := ParseMove(text)
	if err != nil {
		return err
	}
	cm, ok := newPosition(g.game.Position()).index()[m]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	if err := g.game.Move(cm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIllegalMove, text, err)
	}
	g.played = append(g.played, m)
	return nil
}

// Replay resets to fen (the standard start if empty) and plays moves in order.
// On error the game is left at the last good move.
func (g *Game) Replay(fen string, moves []string) error {
	if fen == "" {
		g.Reset()
	} else if err := g.LoadFEN(fen); err != nil {
		return err
	}
	for _, mv := range moves {
		if err := g.Play(mv); err != nil {
			return err
		}
	}
	return nil
}

// Position returns the current position.
func (g *Game) Position() *Position {
	return newPosition(g.game.Position())
}

func (g *Game) StartFEN() string {
	return g.startFEN
}

func (g *Game) Played() []Move {
	return g.played
}
