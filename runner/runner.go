// Package runner assembles a ready-to-play engine from configuration and
// offers the game-level operations the command surfaces share.
package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/eval"
	"github.com/nighty/mlchess/oracle"
	"github.com/nighty/mlchess/search"
)

// EngineRunner is a search session plus the config it was built from.
type EngineRunner struct {
	*search.Session

	oracle oracle.Oracle
	cfg    *config.Config
}

// NewEngineRunner loads the configured oracle and builds a session at the
// starting position. Failing to load the oracle is an error; the engine is
// useless without it.
func NewEngineRunner(ctx context.Context, cfg *config.Config) (*EngineRunner, error) {
	o, err := oracle.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading oracle: %w", err)
	}
	return NewEngineRunnerWithOracle(cfg, o)
}

// NewEngineRunnerWithOracle builds a runner around an already loaded oracle.
func NewEngineRunnerWithOracle(cfg *config.Config, o oracle.Oracle) (*EngineRunner, error) {
	s, err := search.NewSession(o, eval.New(), SearchConfig(cfg))
	if err != nil {
		return nil, err
	}
	log.Debug().Interface("search-config", s.Config()).Msg("engine-ready")
	return &EngineRunner{Session: s, oracle: o, cfg: cfg}, nil
}

func (r *EngineRunner) Oracle() oracle.Oracle {
	return r.oracle
}

func (r *EngineRunner) Cfg() *config.Config {
	return r.cfg
}

// NewGame goes back to the starting position.
func (r *EngineRunner) NewGame() {
	r.Game().Reset()
}

// SetPosition replays moves from fen, or from the starting position when
// fen is empty.
func (r *EngineRunner) SetPosition(fen string, moves []string) error {
	return r.Game().Replay(fen, moves)
}

// PickMove searches the current position. ok is false when the side to move
// has no legal moves.
func (r *EngineRunner) PickMove(ctx context.Context) (m board.Move, res search.Result, ok bool, err error) {
	res, err = r.Search(ctx)
	if err != nil {
		return board.Move{}, res, false, err
	}
	if res.Move == nil {
		log.Info().Str("fen", r.Position().FEN()).Str("status", r.Position().Status().String()).
			Msg("no move in terminal position")
		return board.Move{}, res, false, nil
	}
	return *res.Move, res, true, nil
}
