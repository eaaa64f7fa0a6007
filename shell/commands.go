package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/eval"
	"github.com/nighty/mlchess/oracle"
	"github.com/nighty/mlchess/runner"
	"github.com/nighty/mlchess/search"
	"github.com/nighty/mlchess/stats"
)

func (sc *ShellController) uci(cmd *shellcmd) (*Response, error) {
	lines := []string{
		"id name " + EngineName,
		"id author " + EngineAuthor,
	}
	lines = append(lines, runner.OptionDeclarations(sc.engine.Config())...)
	lines = append(lines, "uciok")
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) position(cmd *shellcmd) (*Response, error) {
	pa, err := runner.ParsePositionArgs(cmd.args)
	if err != nil {
		return nil, err
	}
	if err := sc.engine.SetPosition(pa.FEN, pa.Moves); err != nil {
		return nil, err
	}
	if sc.mode == InteractiveMode {
		return msg(sc.engine.Position().ToDisplayText()), nil
	}
	return nil, nil
}

func (sc *ShellController) goCmd(ctx context.Context, cmd *shellcmd) (*Response, error) {
	m, res, ok, err := sc.engine.PickMove(ctx)
	if err != nil {
		return nil, err
	}
	return msg(runner.InfoLine(sc.engine.Session, res) + "\n" + runner.BestMoveLine(m, ok)), nil
}

// parseSetOption splits "name <words...> value <v>".
func parseSetOption(args []string) (name, value string, err error) {
	if len(args) < 2 || args[0] != "name" {
		return "", "", errors.New("usage: setoption name <name> value <n>")
	}
	vi := lo.IndexOf(args, "value")
	if vi < 2 || vi == len(args)-1 {
		return "", "", errors.New("usage: setoption name <name> value <n>")
	}
	return strings.Join(args[1:vi], " "), strings.Join(args[vi+1:], " "), nil
}

func (sc *ShellController) setOption(cmd *shellcmd) (*Response, error) {
	name, value, err := parseSetOption(cmd.args)
	if err != nil {
		return nil, err
	}
	if err := sc.engine.SetOption(name, value); err != nil {
		return nil, err
	}
	if sc.mode == InteractiveMode {
		c := sc.engine.Config()
		return msg(fmt.Sprintf("depth %d, pieces %d, moves %d", c.MaxDepth, c.PieceBreadth, c.MoveBreadth)), nil
	}
	return nil, nil
}

func intOption(cmd *shellcmd, key string, dflt int) (int, error) {
	v, ok := cmd.options[key]
	if !ok {
		return dflt, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("-%s needs a positive integer, got %q", key, v)
	}
	return n, nil
}

func (sc *ShellController) predict(ctx context.Context, cmd *shellcmd) (*Response, error) {
	n, err := intOption(cmd, "n", 5)
	if err != nil {
		return nil, err
	}
	n = min(n, board.NumSquares)
	pos := sc.engine.Position()
	side := pos.SideToMove()
	breadth := sc.engine.Config().PieceBreadth
	var counters search.Counters
	b, err := sc.engine.Ranker().Rank(ctx, pos, side, breadth, &counters)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s to move; top %d sources (* = legal)\n", side, breadth)
	for i := 0; i < breadth; i++ {
		src := b.Sources[i]
		dests := lo.Map(b.Destinations[i][:n], func(dst board.Square, _ int) string {
			if pos.IsLegal(board.Move{From: src, To: dst}) {
				return dst.String() + "*"
			}
			return dst.String()
		})
		fmt.Fprintf(&sb, "%2d. %s: %s\n", i+1, src, strings.Join(dests, " "))
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

// benchSession is a copy of the engine's session at the current position, so
// benchmarking leaves the engine's own counters and best move alone.
func (sc *ShellController) benchSession() (*search.Session, error) {
	s, err := search.NewSession(sc.engine.Oracle(), eval.New(), sc.engine.Config())
	if err != nil {
		return nil, err
	}
	g := sc.engine.Game()
	fen := g.StartFEN()
	if fen == board.StartFEN {
		fen = ""
	}
	moves := lo.Map(g.Played(), func(m board.Move, _ int) string { return m.String() })
	if err := s.Game().Replay(fen, moves); err != nil {
		return nil, err
	}
	return s, nil
}

func (sc *ShellController) bench(ctx context.Context, cmd *shellcmd) (*Response, error) {
	iters, err := intOption(cmd, "n", 10000)
	if err != nil {
		return nil, err
	}
	calls, err := intOption(cmd, "calls", 100)
	if err != nil {
		return nil, err
	}
	searches, err := intOption(cmd, "searches", 5)
	if err != nil {
		return nil, err
	}
	s, err := sc.benchSession()
	if err != nil {
		return nil, err
	}
	pos := s.Position()
	ev := eval.New()
	o := sc.engine.Oracle()

	encodeT := stats.NewTiming("encode")
	evalT := stats.NewTiming("evaluate")
	fromT := stats.NewTiming("from-call")
	toT := stats.NewTiming("to-call")
	searchT := stats.NewTiming("search")

	for i := 0; i < iters; i++ {
		encodeT.Time(func() error {
			oracle.Encode(pos)
			return nil
		})
		evalT.Time(func() error {
			ev.Evaluate(pos, pos.SideToMove())
			return nil
		})
	}

	feats := oracle.Encode(pos)
	queries := make([]oracle.ToQuery, s.Config().PieceBreadth)
	for i := range queries {
		queries[i] = oracle.ToQuery{Board: feats, Source: board.Square(i)}
	}
	for i := 0; i < calls; i++ {
		if err := fromT.Time(func() error {
			_, err := o.PredictFrom(ctx, []oracle.Features{feats})
			return err
		}); err != nil {
			return nil, err
		}
		if err := toT.Time(func() error {
			_, err := o.PredictTo(ctx, queries)
			return err
		}); err != nil {
			return nil, err
		}
	}

	nodes := 0
	for i := 0; i < searches; i++ {
		if err := searchT.Time(func() error {
			_, err := s.Search(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		nodes += s.Nodes
	}

	var sb strings.Builder
	for _, t := range []*stats.Timing{encodeT, evalT, fromT, toT, searchT} {
		sb.WriteString(t.Summary())
		sb.WriteString("\n")
	}
	if searches > 0 {
		fmt.Fprintf(&sb, "%d nodes per search\n", nodes/searches)
	}
	sb.WriteString("search times (ms):\n")
	if err := searchT.FprintHistogram(&sb, 40); err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}
