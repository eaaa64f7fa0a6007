package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/oracle"
)

// A Ranking holds all 64 squares ordered by descending oracle score. Equal
// scores keep ascending square order.
type Ranking [board.NumSquares]board.Square

func rankScores(scores []float32) Ranking {
	var r Ranking
	for i := range r {
		r[i] = board.Square(i)
	}
	sort.SliceStable(r[:], func(i, j int) bool {
		return scores[r[i]] > scores[r[j]]
	})
	return r
}

// Bundle is one ply's candidates: the ranked source squares for Side and,
// for each of the first PieceBreadth of them, the ranked destinations.
// Destinations[i] belongs to Sources[i].
type Bundle struct {
	Side         board.Side
	Sources      Ranking
	Destinations []Ranking
}

// Counters are the per-search performance counters.
type Counters struct {
	Nodes       int
	OracleCalls int
}

// Ranker turns oracle predictions into a Bundle. It does no legality
// checking.
type Ranker struct {
	oracle oracle.Oracle
}

func NewRanker(o oracle.Oracle) *Ranker {
	return &Ranker{oracle: o}
}

// Rank makes one from-call and one batched to-call, and counts both in c
// whatever the breadth.
func (r *Ranker) Rank(ctx context.Context, pos *board.Position, side board.Side, breadth int, c *Counters) (*Bundle, error) {
	c.OracleCalls += 2
	feats := oracle.Encode(pos)

	from, err := r.oracle.PredictFrom(ctx, []oracle.Features{feats})
	if err != nil {
		return nil, fmt.Errorf("from-prediction: %w", err)
	}
	if len(from) != 1 || len(from[0]) != oracle.FromOutputLen {
		return nil, fmt.Errorf("%w: from-prediction shape", oracle.ErrBadOutput)
	}
	half := int(side) * board.NumSquares
	b := &Bundle{
		Side:    side,
		Sources: rankScores(from[0][half : half+board.NumSquares]),
	}

	queries := make([]oracle.ToQuery, breadth)
	for i := range queries {
		queries[i] = oracle.ToQuery{Board: feats, Source: b.Sources[i]}
	}
	to, err := r.oracle.PredictTo(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("to-prediction: %w", err)
	}
	if len(to) != breadth {
		return nil, fmt.Errorf("%w: to-prediction returned %d rows for %d sources",
			oracle.ErrBadOutput, len(to), breadth)
	}
	b.Destinations = make([]Ranking, breadth)
	for i, scores := range to {
		if len(scores) != oracle.ToOutputLen {
			return nil, fmt.Errorf("%w: to-prediction row of %d", oracle.ErrBadOutput, len(scores))
		}
		b.Destinations[i] = rankScores(scores)
	}
	return b, nil
}
