// Package bot serves the engine over NATS: each request carries a position,
// each reply carries the move the engine picked for it.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/runner"
)

// NoMove is sent as the best move of a position with no legal moves.
const NoMove = "0000"

// MoveRequest asks for a move. An empty FEN means the standard starting
// position.
type MoveRequest struct {
	FEN   string   `json:"fen,omitempty"`
	Moves []string `json:"moves,omitempty"`
}

type MoveResponse struct {
	BestMove string `json:"bestmove,omitempty"`
	Score    int    `json:"score"`
	Nodes    int    `json:"nodes"`
	Error    string `json:"error,omitempty"`
}

// Bot owns one engine. Requests are answered one at a time.
type Bot struct {
	sync.Mutex
	config *config.Config
	engine *runner.EngineRunner
}

func NewBot(cfg *config.Config, engine *runner.EngineRunner) *Bot {
	return &Bot{config: cfg, engine: engine}
}

func errorResponse(message string, err error) *MoveResponse {
	return &MoveResponse{Error: fmt.Sprintf("%s: %v", message, err)}
}

func (bot *Bot) handle(ctx context.Context, data []byte) *MoveResponse {
	bot.Lock()
	defer bot.Unlock()

	req := MoveRequest{}
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse("Could not parse request", err)
	}
	if err := bot.engine.SetPosition(req.FEN, req.Moves); err != nil {
		return errorResponse("Could not set up position", err)
	}
	m, res, ok, err := bot.engine.PickMove(ctx)
	if err != nil {
		return errorResponse("Search failed", err)
	}
	resp := &MoveResponse{BestMove: NoMove, Score: res.Score, Nodes: bot.engine.Nodes}
	if ok {
		resp.BestMove = m.String()
	}
	log.Info().Str("fen", bot.engine.Position().FEN()).Str("move", resp.BestMove).
		Int("score", resp.Score).Int("nodes", resp.Nodes).Msg("generated-move")
	return resp
}

// respond is the body of the subscription handler: decode, search, encode.
func (bot *Bot) respond(ctx context.Context, data []byte) []byte {
	resp := bot.handle(ctx, data)
	out, err := json.Marshal(resp)
	if err != nil {
		// Should never happen; every field is a plain string or int.
		return []byte(`{"error":"` + err.Error() + `"}`)
	}
	return out
}

// Connect dials the configured NATS server, backing off between attempts.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(url, nats.Name("mlchess-bot"))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(8),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("n", n).Str("url", url).Msg("could-not-connect-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, err
	}
	return nc, nil
}

// Main listens on the configured subject until ctx is done.
func Main(ctx context.Context, bot *Bot) error {
	url := bot.config.GetString(config.ConfigNatsURL)
	subject := bot.config.GetString(config.ConfigNatsSubject)
	if subject == "" {
		return fmt.Errorf("%w: empty %s", config.ErrBadConfig, config.ConfigNatsSubject)
	}
	nc, err := Connect(ctx, url)
	if err != nil {
		return err
	}
	defer nc.Close()

	_, err = nc.Subscribe(subject, func(m *nats.Msg) {
		log.Info().Msgf("RECV: %d bytes", len(m.Data))
		if err := m.Respond(bot.respond(ctx, m.Data)); err != nil {
			log.Err(err).Msg("could-not-respond")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Msgf("Listening on [%s]", subject)

	<-ctx.Done()
	if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}
