package runner

import (
	"fmt"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/search"
)

// InfoLine is the UCI "info" line for the last root search.
func InfoLine(s *search.Session, res search.Result) string {
	return fmt.Sprintf("info depth %d nodes %d time %d nps %d score cp %d",
		s.Config().MaxDepth, s.Nodes, s.Elapsed().Milliseconds(),
		int64(s.NodesPerSecond()), res.Score)
}

// BestMoveLine is the UCI reply to "go". A terminal position has no move
// and answers with the null move.
func BestMoveLine(m board.Move, ok bool) string {
	if !ok {
		return "bestmove 0000"
	}
	return "bestmove " + m.String()
}
