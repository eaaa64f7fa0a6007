package oracle

import (
	"context"
	"encoding/binary"
	"sync"

	"lukechampine.com/frand"

	"github.com/nighty/mlchess/board"
)

// RandomOracle scores squares at random, nudged towards pieces of the side
// whose half is scored and towards squares they could move to. It stands in
// for the networks when no weights are available, e.g. for benchmarks and
// smoke tests.
type RandomOracle struct {
	mu  sync.Mutex
	rng *frand.RNG
}

// NewRandom returns a reproducible oracle for a non-zero seed, and an
// entropy-seeded one otherwise.
func NewRandom(seed uint64) *RandomOracle {
	if seed == 0 {
		return &RandomOracle{rng: frand.New()}
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return &RandomOracle{rng: frand.NewCustom(key[:], 1024, 12)}
}

// plausibleBonus lifts squares that could take part in a legal move above
// all others, so searches on this backend mostly resolve real candidates.
const plausibleBonus = 1

const (
	noSide = iota
	whiteSide
	blackSide
)

// sideOf reads the owner of a square from its piece code.
func sideOf(code float32) int {
	switch {
	case code == 0:
		return noSide
	case code <= blackOffset:
		return whiteSide
	}
	return blackSide
}

func (o *RandomOracle) score() float32 {
	return float32(o.rng.Uint64n(1<<24)) / (1 << 24)
}

// fromScores favours each side's occupied squares in its own half.
func (o *RandomOracle) fromScores(f Features) []float32 {
	out := make([]float32, FromOutputLen)
	for sq, code := range f {
		out[sq] = o.score()
		out[board.NumSquares+sq] = o.score()
		switch sideOf(code) {
		case whiteSide:
			out[sq] += plausibleBonus
		case blackSide:
			out[board.NumSquares+sq] += plausibleBonus
		}
	}
	return out
}

// toScores favours empty squares and the opponent's pieces.
func (o *RandomOracle) toScores(q ToQuery) []float32 {
	own := sideOf(q.Board[q.Source])
	out := make([]float32, ToOutputLen)
	for sq, code := range q.Board {
		out[sq] = o.score()
		if sq != int(q.Source) && (own == noSide || sideOf(code) != own) {
			out[sq] += plausibleBonus
		}
	}
	return out
}

// PredictFrom scores in [0, 2): random noise, plus one for squares holding a
// piece of the half's side.
func (o *RandomOracle) PredictFrom(ctx context.Context, batch []Features) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]float32, len(batch))
	for i := range out {
		out[i] = o.fromScores(batch[i])
	}
	return out, nil
}

// PredictTo scores in [0, 2): random noise, plus one for squares the source
// piece could land on without capturing its own side.
func (o *RandomOracle) PredictTo(ctx context.Context, queries []ToQuery) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]float32, len(queries))
	for i := range out {
		out[i] = o.toScores(queries[i])
	}
	return out, nil
}
