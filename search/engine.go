package search

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/oracle"
)

// Session owns a game and everything a search needs: the oracle-backed
// ranker, the evaluator, the limits, the counters of the last root search
// and its result. A Session is not safe for concurrent use.
type Session struct {
	game   *board.Game
	ranker *Ranker
	eval   Evaluator
	cfg    Config

	Counters
	Start time.Time

	// Best move and score of the last root search that produced a move.
	// A search from a terminal position leaves them alone.
	BestMove  board.Move
	BestScore int
	HasBest   bool
}

func NewSession(o oracle.Oracle, e Evaluator, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		game:   board.NewGame(),
		ranker: NewRanker(o),
		eval:   e,
		cfg:    cfg,
	}, nil
}

func (s *Session) Game() *board.Game {
	return s.game
}

func (s *Session) Position() *board.Position {
	return s.game.Position()
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Ranker exposes the session's ranker for diagnostics.
func (s *Session) Ranker() *Ranker {
	return s.ranker
}

func (s *Session) Elapsed() time.Duration {
	return time.Since(s.Start)
}

// NodesPerSecond over the last root search.
func (s *Session) NodesPerSecond() float64 {
	secs := s.Elapsed().Seconds()
	if secs == 0 {
		return 0
	}
	return float64(s.Nodes) / secs
}

func (s *Session) resetCounters() {
	s.Counters = Counters{}
	s.Start = time.Now()
}

// Search runs a root search from the current position. The counters are
// reset first. The returned Result has no move only if the position is
// already checkmate or stalemate.
func (s *Session) Search(ctx context.Context) (Result, error) {
	s.resetCounters()
	res, _, err := s.search(ctx, s.game.Position(), 1)
	if err != nil {
		return Result{}, err
	}
	log.Debug().
		Str("result", res.String()).
		Int("nodes", s.Nodes).
		Int("oracle-calls", s.OracleCalls).
		Dur("elapsed", s.Elapsed()).
		Float64("nps", s.NodesPerSecond()).
		Msg("search-done")
	return res, nil
}

// search returns the best move at pos and its negated score. ok is false
// when a non-root ply found no resolvable move; the caller skips it.
func (s *Session) search(ctx context.Context, pos *board.Position, depth int) (Result, bool, error) {
	if pos.NumLegalMoves() == 0 {
		if pos.Status() == board.Checkmate {
			return Result{Score: TerminalScore}, true, nil
		}
		return Result{Score: 0}, true, nil
	}

	side := pos.SideToMove()
	b, err := s.ranker.Rank(ctx, pos, side, s.cfg.PieceBreadth, &s.Counters)
	if err != nil {
		return Result{}, false, err
	}

	best := -Infinity
	bestSource, bestOrdinal := 0, 1
	for src := 0; src < s.cfg.PieceBreadth; src++ {
		for n := 1; n <= s.cfg.MoveBreadth; n++ {
			m, ok := Resolve(pos, b, src, n)
			if !ok {
				// later ordinals exhaust too
				break
			}
			s.Nodes++
			child, err := pos.Apply(m)
			if err != nil {
				return Result{}, false, err
			}
			var score int
			if depth == s.cfg.MaxDepth {
				score = s.eval.Evaluate(child, side.Opposite())
				if child.Status() == board.Checkmate {
					score += LeafMateBonus
				}
			} else {
				res, ok, err := s.search(ctx, child, depth+1)
				if err != nil {
					return Result{}, false, err
				}
				if !ok {
					continue
				}
				score = res.Score
			}
			if score > best {
				best, bestSource, bestOrdinal = score, src, n
			}
		}
	}

	if m, ok := Resolve(pos, b, bestSource, bestOrdinal); ok {
		return s.finish(depth, m, -best), true, nil
	}
	if depth != 1 {
		return Result{}, false, nil
	}
	if m, ok := Resolve(pos, b, 0, 1); ok {
		return s.finish(depth, m, -best), true, nil
	}
	m := pos.LegalMoves()[0]
	log.Warn().Str("move", m.String()).Str("fen", pos.FEN()).
		Msg("no ranked move resolved; playing first legal move")
	return s.finish(depth, m, FallbackScore), true, nil
}

func (s *Session) finish(depth int, m board.Move, score int) Result {
	if depth == 1 {
		s.BestMove, s.BestScore, s.HasBest = m, score, true
	}
	return Result{Move: &m, Score: score}
}
