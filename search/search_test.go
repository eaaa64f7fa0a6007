package search

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/eval"
	"github.com/nighty/mlchess/oracle"
)

const (
	foolsMateFEN    = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	beforeMateFEN   = "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2"
	stalemateFEN    = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	onlyMoveFEN     = "4k3/8/8/8/7p/8/2q4P/K7 w - - 0 1"
	promoFEN        = "8/4P3/8/8/8/8/k7/4K3 w - - 0 1"
	middlegameFEN   = "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"
	kingsAndPawnFEN = "8/8/4k3/8/8/4K3/4P3/8 w - - 0 1"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

// prefer returns n scores where the listed squares score highest, in the
// order given, and everything else ties at zero.
func prefer(n int, squares ...string) []float32 {
	out := make([]float32, n)
	for i, s := range squares {
		out[board.MustSquare(s)] = float32(len(squares) - i)
	}
	return out
}

// scriptedOracle returns the same predictions for every position.
type scriptedOracle struct {
	white, black []float32
	to           []float32

	fromCalls, toCalls int
	toBatches          []int
	err                error
}

func (o *scriptedOracle) PredictFrom(ctx context.Context, batch []oracle.Features) ([][]float32, error) {
	o.fromCalls++
	if o.err != nil {
		return nil, o.err
	}
	row := append(append([]float32{}, o.white...), o.black...)
	return [][]float32{row}, nil
}

func (o *scriptedOracle) PredictTo(ctx context.Context, queries []oracle.ToQuery) ([][]float32, error) {
	o.toCalls++
	o.toBatches = append(o.toBatches, len(queries))
	out := make([][]float32, len(queries))
	for i := range out {
		out[i] = o.to
	}
	return out, nil
}

type countingEvaluator struct {
	calls int
	fn    func(pos *board.Position, against board.Side) int
}

func (e *countingEvaluator) Evaluate(pos *board.Position, against board.Side) int {
	e.calls++
	if e.fn == nil {
		return 0
	}
	return e.fn(pos, against)
}

func newSession(t *testing.T, o oracle.Oracle, e Evaluator, d, p, m int) *Session {
	s, err := NewSession(o, e, Config{MaxDepth: d, PieceBreadth: p, MoveBreadth: m})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConfigValidate(t *testing.T) {
	is := is.New(t)
	is.NoErr(DefaultConfig().Validate())
	for _, c := range []Config{
		{MaxDepth: 0, PieceBreadth: 1, MoveBreadth: 1},
		{MaxDepth: 33, PieceBreadth: 1, MoveBreadth: 1},
		{MaxDepth: 1, PieceBreadth: 0, MoveBreadth: 1},
		{MaxDepth: 1, PieceBreadth: 65, MoveBreadth: 1},
		{MaxDepth: 1, PieceBreadth: 1, MoveBreadth: 0},
	} {
		is.True(errors.Is(c.Validate(), ErrBadSearchConfig))
	}
	_, err := NewSession(&scriptedOracle{}, eval.New(), Config{})
	is.True(errors.Is(err, ErrBadSearchConfig))
}

func TestRankScoresTieOrder(t *testing.T) {
	is := is.New(t)
	scores := make([]float32, 64)
	scores[40] = 3
	scores[7] = 1
	scores[5] = 1
	scores[63] = -1
	r := rankScores(scores)
	is.Equal(r[0], board.Square(40))
	is.Equal(r[1], board.Square(5))
	is.Equal(r[2], board.Square(7))
	is.Equal(r[3], board.Square(0))
	is.Equal(r[63], board.Square(63))

	seen := map[board.Square]bool{}
	for _, sq := range r {
		seen[sq] = true
	}
	is.Equal(len(seen), 64)
	is.Equal(rankScores(scores), r)
}

func TestRankCountsTwoCallsAndBatches(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2", "d2", "g1"),
		black: prefer(64, "e7"),
		to:    prefer(64, "e4"),
	}
	var c Counters
	r := NewRanker(o)

	b, err := r.Rank(context.Background(), board.StartingPosition(), board.White, 3, &c)
	is.NoErr(err)
	is.Equal(c.OracleCalls, 2)
	is.Equal(o.fromCalls, 1)
	is.Equal(o.toBatches, []int{3})
	is.Equal(b.Side, board.White)
	is.Equal(b.Sources[0], board.MustSquare("e2"))
	is.Equal(b.Sources[2], board.MustSquare("g1"))
	is.Equal(len(b.Destinations), 3)
	is.Equal(b.Destinations[0][0], board.MustSquare("e4"))

	b, err = r.Rank(context.Background(), board.StartingPosition(), board.Black, 1, &c)
	is.NoErr(err)
	is.Equal(c.OracleCalls, 4)
	is.Equal(b.Sources[0], board.MustSquare("e7"))
}

func TestRankBadShape(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{white: prefer(64), black: prefer(10), to: prefer(64)}
	_, err := NewRanker(o).Rank(context.Background(), board.StartingPosition(), board.White, 1, &Counters{})
	is.True(errors.Is(err, oracle.ErrBadOutput))
}

func TestResolveOrdinals(t *testing.T) {
	is := is.New(t)
	pos := board.StartingPosition()
	o := &scriptedOracle{
		white: prefer(64, "e2", "g1"),
		black: prefer(64),
		to:    prefer(64, "e4", "e5", "e3", "f3"),
	}
	b, err := NewRanker(o).Rank(context.Background(), pos, board.White, 2, &Counters{})
	is.NoErr(err)

	m, ok := Resolve(pos, b, 0, 1)
	is.True(ok)
	is.Equal(m.String(), "e2e4")
	m, ok = Resolve(pos, b, 0, 2)
	is.True(ok)
	is.Equal(m.String(), "e2e3")
	_, ok = Resolve(pos, b, 0, 3)
	is.True(!ok)

	// knight: f3 is preferred, h3 comes up in square order
	m, ok = Resolve(pos, b, 1, 1)
	is.True(ok)
	is.Equal(m.String(), "g1f3")
	m, ok = Resolve(pos, b, 1, 2)
	is.True(ok)
	is.Equal(m.String(), "g1h3")
	_, ok = Resolve(pos, b, 1, 3)
	is.True(!ok)

	_, ok = Resolve(pos, b, 2, 1)
	is.True(!ok)
	_, ok = Resolve(pos, b, 0, 0)
	is.True(!ok)
}

func TestResolveNeverPromotes(t *testing.T) {
	is := is.New(t)
	pos, err := board.PositionFromFEN(promoFEN)
	is.NoErr(err)
	o := &scriptedOracle{white: prefer(64, "e7"), black: prefer(64), to: prefer(64, "e8")}
	b, err := NewRanker(o).Rank(context.Background(), pos, board.White, 1, &Counters{})
	is.NoErr(err)
	_, ok := Resolve(pos, b, 0, 1)
	is.True(!ok)
}

func TestScenarioSinglePly(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2", "d2"),
		black: prefer(64),
		to:    prefer(64, "e4"),
	}
	e := &countingEvaluator{}
	s := newSession(t, o, e, 1, 1, 1)

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.True(res.Move != nil)
	is.Equal(res.Move.String(), "e2e4")
	is.Equal(s.Nodes, 1)
	is.Equal(s.OracleCalls, 2)
	is.Equal(e.calls, 1)
	is.True(s.HasBest)
	is.Equal(s.BestMove.String(), "e2e4")
	is.Equal(s.BestScore, res.Score)
}

func TestScenarioFallbackToOnlyMove(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "a1"),
		black: prefer(64),
		to:    prefer(64, "b1", "b2", "a2"),
	}
	e := &countingEvaluator{}
	s := newSession(t, o, e, 1, 1, 1)
	is.NoErr(s.Game().LoadFEN(onlyMoveFEN))

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(res.Move.String(), "h2h3")
	is.Equal(res.Score, FallbackScore)
	is.Equal(s.Nodes, 0)
	is.Equal(s.OracleCalls, 2)
	is.Equal(e.calls, 0)
	is.Equal(s.BestMove.String(), "h2h3")
	is.Equal(s.BestScore, FallbackScore)
}

func TestScenarioCheckmatedAtRoot(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2"),
		black: prefer(64, "e7"),
		to:    prefer(64, "e4", "e5"),
	}
	e := &countingEvaluator{}
	s := newSession(t, o, e, 2, 1, 1)

	first, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(first.Move.String(), "e2e4")
	is.True(s.Nodes > 0)
	prevMove, prevScore := s.BestMove, s.BestScore
	calls := o.fromCalls

	is.NoErr(s.Game().LoadFEN(foolsMateFEN))
	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.True(res.Move == nil)
	is.Equal(res.Score, TerminalScore)
	is.Equal(s.Nodes, 0)
	is.Equal(s.OracleCalls, 0)
	is.Equal(o.fromCalls, calls)
	is.Equal(s.BestMove, prevMove)
	is.Equal(s.BestScore, prevScore)
}

func TestStalematedAtRoot(t *testing.T) {
	is := is.New(t)
	e := &countingEvaluator{}
	s := newSession(t, &scriptedOracle{}, e, 1, 1, 1)
	is.NoErr(s.Game().LoadFEN(stalemateFEN))
	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.True(res.Move == nil)
	is.Equal(res.Score, 0)
	is.Equal(e.calls, 0)
	is.True(!s.HasBest)
}

func TestScenarioTwoPlies(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2", "d2"),
		black: prefer(64, "e7", "d7"),
		to:    prefer(64, "e4", "e3", "d4", "d3", "e5", "e6", "d5", "d6"),
	}
	e := &countingEvaluator{}
	s := newSession(t, o, e, 2, 2, 2)

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(s.Nodes, 4+4*4)
	is.Equal(e.calls, 16)
	is.Equal(s.OracleCalls, 2*(1+4))
	for _, n := range o.toBatches {
		is.Equal(n, 2)
	}
	// all leaves score alike, so the first pair wins
	is.Equal(res.Move.String(), "e2e4")
	is.Equal(res.Score, 0)
}

func TestNegamaxPicksReplyAwareMove(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2", "d2"),
		black: prefer(64, "e7", "d7"),
		to:    prefer(64, "e4", "e3", "d4", "d3", "e5", "e6", "d5", "d6"),
	}
	// black likes e5 only when it blocks a white pawn on e4
	e := &countingEvaluator{fn: func(pos *board.Position, against board.Side) int {
		e5, ok5 := pos.PieceAt(board.MustSquare("e5"))
		e4, ok4 := pos.PieceAt(board.MustSquare("e4"))
		if ok5 && ok4 && e5.Side == board.Black && e4.Side == board.White {
			return 50
		}
		return 0
	}}
	s := newSession(t, o, e, 2, 2, 2)

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(res.Move.String(), "e2e3")
	is.Equal(res.Score, 0)
}

func TestLeafMateBonus(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64),
		black: prefer(64, "g8", "d8"),
		to:    prefer(64, "f6", "h6", "h4"),
	}
	s := newSession(t, o, &countingEvaluator{}, 1, 2, 2)
	is.NoErr(s.Game().LoadFEN(beforeMateFEN))

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(s.Nodes, 4)
	is.Equal(res.Move.String(), "d8h4")
	is.Equal(res.Score, -LeafMateBonus)
}

func TestUnresolvableReplyIsSkipped(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{
		white: prefer(64, "e2"),
		black: prefer(64, "a8"),
		to:    prefer(64, "e4"),
	}
	e := &countingEvaluator{}
	s := newSession(t, o, e, 2, 1, 1)

	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(res.Move.String(), "e2e4")
	is.Equal(res.Score, Infinity)
	is.Equal(s.Nodes, 1)
	is.Equal(s.OracleCalls, 4)
	is.Equal(e.calls, 0)
}

func TestCountersResetPerRootSearch(t *testing.T) {
	is := is.New(t)
	o := &scriptedOracle{white: prefer(64, "e2"), black: prefer(64), to: prefer(64, "e4")}
	s := newSession(t, o, &countingEvaluator{}, 1, 1, 1)
	for i := 0; i < 3; i++ {
		_, err := s.Search(context.Background())
		is.NoErr(err)
		is.Equal(s.Nodes, 1)
		is.Equal(s.OracleCalls, 2)
	}
}

func TestOracleErrorPropagates(t *testing.T) {
	is := is.New(t)
	boom := errors.New("boom")
	s := newSession(t, &scriptedOracle{err: boom}, eval.New(), 2, 2, 2)
	_, err := s.Search(context.Background())
	is.True(errors.Is(err, boom))
	is.True(!s.HasBest)
}

func TestChosenMoveIsLegal(t *testing.T) {
	for _, fen := range []string{board.StartFEN, middlegameFEN, kingsAndPawnFEN, onlyMoveFEN, beforeMateFEN} {
		for seed := uint64(1); seed <= 4; seed++ {
			t.Run(fen, func(t *testing.T) {
				is := is.New(t)
				s := newSession(t, oracle.NewRandom(seed), eval.New(), 2, 3, 2)
				is.NoErr(s.Game().LoadFEN(fen))
				res, err := s.Search(context.Background())
				is.NoErr(err)
				is.True(res.Move != nil)
				is.True(s.Position().IsLegal(*res.Move))
				is.True(s.Nodes <= 3*2+3*2*3*2)
			})
		}
	}
}

func TestTerminalScoresDominateEvaluation(t *testing.T) {
	is := is.New(t)
	is.True(TerminalScore > eval.Bound)
	is.True(LeafMateBonus > eval.Bound)
	is.True(-FallbackScore > Infinity)
}
