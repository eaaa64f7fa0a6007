package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/config"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestEncodeStartingPosition(t *testing.T) {
	f := Encode(board.StartingPosition())

	// back rank: rook, knight, bishop, queen, king, bishop, knight, rook
	assert.Equal(t, []float32{2, 3, 4, 5, 6, 4, 3, 2}, f[0:8])
	for sq := 8; sq < 16; sq++ {
		assert.Equal(t, float32(1), f[sq], "white pawn on %s", board.Square(sq))
	}
	for sq := 16; sq < 48; sq++ {
		assert.Equal(t, float32(0), f[sq])
	}
	for sq := 48; sq < 56; sq++ {
		assert.Equal(t, float32(7), f[sq], "black pawn on %s", board.Square(sq))
	}
	assert.Equal(t, []float32{8, 9, 10, 11, 12, 10, 9, 8}, f[56:64])
}

func TestEncodeIgnoresSideToMove(t *testing.T) {
	p := board.StartingPosition()
	child, err := p.Apply(board.Move{From: board.MustSquare("g1"), To: board.MustSquare("f3")})
	require.NoError(t, err)
	f := Encode(child)
	assert.Equal(t, float32(0), f[board.MustSquare("g1")])
	assert.Equal(t, float32(3), f[board.MustSquare("f3")])
}

func TestRandomOracleShapes(t *testing.T) {
	o := NewRandom(7)
	ctx := context.Background()
	feats := Encode(board.StartingPosition())

	from, err := o.PredictFrom(ctx, []Features{feats, feats})
	require.NoError(t, err)
	require.Len(t, from, 2)
	assert.Len(t, from[0], FromOutputLen)

	to, err := o.PredictTo(ctx, []ToQuery{{Board: feats, Source: 12}, {Board: feats, Source: 6}, {Board: feats, Source: 1}})
	require.NoError(t, err)
	require.Len(t, to, 3)
	for _, row := range to {
		assert.Len(t, row, ToOutputLen)
	}
}

func TestRandomOracleFavoursPlausibleMoves(t *testing.T) {
	o := NewRandom(5)
	ctx := context.Background()
	feats := Encode(board.StartingPosition())

	from, err := o.PredictFrom(ctx, []Features{feats})
	require.NoError(t, err)
	for sq := 0; sq < board.NumSquares; sq++ {
		white, black := from[0][sq], from[0][board.NumSquares+sq]
		assert.Equal(t, sq < 16, white >= 1, "white half %d", sq)
		assert.Equal(t, sq >= 48, black >= 1, "black half %d", sq)
		assert.Less(t, white, float32(2))
		assert.Less(t, black, float32(2))
	}

	e2, e3, e7, d1 := board.MustSquare("e2"), board.MustSquare("e3"), board.MustSquare("e7"), board.MustSquare("d1")
	to, err := o.PredictTo(ctx, []ToQuery{{Board: feats, Source: e2}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, to[0][e3], float32(1))
	assert.GreaterOrEqual(t, to[0][e7], float32(1))
	assert.Less(t, to[0][d1], float32(1))
	assert.Less(t, to[0][e2], float32(1))
}

func TestRandomOracleSeeded(t *testing.T) {
	ctx := context.Background()
	feats := Encode(board.StartingPosition())
	a, err := NewRandom(99).PredictFrom(ctx, []Features{feats})
	require.NoError(t, err)
	b, err := NewRandom(99).PredictFrom(ctx, []Features{feats})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRandomOracleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRandom(1).PredictFrom(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplit(t *testing.T) {
	rows, err := split([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, rows)

	_, err = split([]float32{1, 2, 3}, 2, 3)
	assert.ErrorIs(t, err, ErrBadOutput)
}

func TestLoadMissingModel(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Set(config.ConfigOracleFromModel, filepath.Join(dir, "nope_from.onnx"))
	cfg.Set(config.ConfigOracleToModel, filepath.Join(dir, "nope_to.onnx"))
	_, err := Load(context.Background(), &cfg)
	assert.True(t, errors.Is(err, ErrNoModel))
}

func TestLoadCorruptModel(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.onnx")
	require.NoError(t, os.WriteFile(junk, []byte("not a model"), 0o644))
	cfg.Set(config.ConfigOracleFromModel, junk)
	cfg.Set(config.ConfigOracleToModel, junk)
	_, err := Load(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestModelDigestIgnoresCompression(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	data := []byte("model bytes, compressed or not")

	plain := filepath.Join(dir, "m.onnx")
	require.NoError(t, os.WriteFile(plain, data, 0o644))

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := filepath.Join(dir, "m.onnx.zst")
	require.NoError(t, os.WriteFile(packed, enc.EncodeAll(data, nil), 0o644))
	require.NoError(t, enc.Close())

	var digests []uint64
	for _, path := range []string{plain, packed} {
		obj, err := modelLoadFunc(&cfg, "onnx:"+path)
		require.NoError(t, err)
		tmpl, ok := obj.(*modelTemplate)
		require.True(t, ok)
		assert.Equal(t, data, tmpl.data)
		digests = append(digests, tmpl.digest)
	}
	assert.Equal(t, xxhash.Sum64(data), digests[0])
	assert.Equal(t, digests[0], digests[1])

	_, err = modelLoadFunc(&cfg, "weights:"+plain)
	assert.Error(t, err)
}

func TestLoadRandomBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigOracleBackend, config.BackendRandom)
	o, err := Load(context.Background(), &cfg)
	require.NoError(t, err)
	assert.IsType(t, &RandomOracle{}, o)
}
