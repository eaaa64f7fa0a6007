package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/cache"
	"github.com/nighty/mlchess/config"
)

// modelTemplate holds the raw ONNX model data.
type modelTemplate struct {
	path   string
	data   []byte
	digest uint64
}

type model struct {
	name    string
	backend *gorgonnx.Graph
	model   *onnx.Model
}

// newInstance builds a runnable graph from the template.
func (t *modelTemplate) newInstance() (*model, error) {
	start := time.Now()
	defer func() {
		log.Debug().Str("model", t.path).
			Int64("onnx_model_init_ms", time.Since(start).Milliseconds()).
			Msg("onnx model instance created")
	}()
	backend := gorgonnx.NewGraph()
	m := onnx.NewModel(backend)
	if err := m.UnmarshalBinary(t.data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ONNX model %s: %w", t.path, err)
	}
	return &model{name: t.path, backend: backend, model: m}, nil
}

// modelLoadFunc reads "onnx:<path>". Files ending in .zst are zstd-compressed.
func modelLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	path, ok := strings.CutPrefix(key, "onnx:")
	if !ok || path == "" {
		return nil, errors.New("modelLoadFunc - bad cache key: " + key)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoModel, path)
		}
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read ONNX model file %s: %w", path, err)
	}
	t := &modelTemplate{path: path, data: data, digest: xxhash.Sum64(data)}
	log.Info().Str("path", path).
		Int("model-size", len(data)).
		Str("xxhash", fmt.Sprintf("%016x", t.digest)).
		Msg("loaded-onnx-model")
	return t, nil
}

func loadModel(cfg *config.Config, path string) (*model, error) {
	obj, err := cache.Load(cfg, "onnx:"+path, modelLoadFunc)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*modelTemplate)
	if !ok {
		return nil, errors.New("failed to type-assert ONNX model template")
	}
	return t.newInstance()
}

// run feeds the inputs in order and returns the first output flattened.
func (m *model) run(inputs ...tensor.Tensor) ([]float32, error) {
	for i, in := range inputs {
		if err := m.model.SetInput(i, in); err != nil {
			return nil, fmt.Errorf("failed to set input %d of %s: %w", i, m.name, err)
		}
	}
	if err := m.backend.Run(); err != nil {
		return nil, fmt.Errorf("failed to run ONNX model %s: %w", m.name, err)
	}
	output, err := m.model.GetOutputTensors()
	if err != nil {
		return nil, fmt.Errorf("failed to get output tensors: %w", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%w: %s produced no outputs", ErrBadOutput, m.name)
	}
	switch v := output[0].Data().(type) {
	case []float32:
		return v, nil
	case float32:
		return []float32{v}, nil
	default:
		return nil, fmt.Errorf("%w: output type %T", ErrBadOutput, v)
	}
}

// ONNXOracle runs the two prediction networks in-process.
//
// The from-model takes float32 [N,64] piece codes and yields [N,128]. The
// to-model takes the same board input plus a float32 [K,64] one-hot source
// square and yields [K,64].
type ONNXOracle struct {
	mu   sync.Mutex
	from *model
	to   *model
}

// LoadONNX loads both models concurrently.
func LoadONNX(ctx context.Context, cfg *config.Config) (*ONNXOracle, error) {
	o := &ONNXOracle{}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := loadModel(cfg, cfg.GetString(config.ConfigOracleFromModel))
		o.from = m
		return err
	})
	g.Go(func() error {
		m, err := loadModel(cfg, cfg.GetString(config.ConfigOracleToModel))
		o.to = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *ONNXOracle) PredictFrom(ctx context.Context, batch []Features) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(batch)
	if n == 0 {
		return nil, nil
	}
	backing := make([]float32, 0, n*board.NumSquares)
	for i := range batch {
		backing = append(backing, batch[i][:]...)
	}
	in := tensor.New(tensor.WithShape(n, board.NumSquares), tensor.WithBacking(backing))

	o.mu.Lock()
	defer o.mu.Unlock()
	flat, err := o.from.run(in)
	if err != nil {
		return nil, err
	}
	return split(flat, n, FromOutputLen)
}

func (o *ONNXOracle) PredictTo(ctx context.Context, queries []ToQuery) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := len(queries)
	if k == 0 {
		return nil, nil
	}
	boards := make([]float32, 0, k*board.NumSquares)
	sources := make([]float32, k*board.NumSquares)
	for i, q := range queries {
		boards = append(boards, q.Board[:]...)
		sources[i*board.NumSquares+int(q.Source)] = 1
	}
	boardT := tensor.New(tensor.WithShape(k, board.NumSquares), tensor.WithBacking(boards))
	sourceT := tensor.New(tensor.WithShape(k, board.NumSquares), tensor.WithBacking(sources))

	o.mu.Lock()
	defer o.mu.Unlock()
	flat, err := o.to.run(boardT, sourceT)
	if err != nil {
		return nil, err
	}
	return split(flat, k, ToOutputLen)
}
