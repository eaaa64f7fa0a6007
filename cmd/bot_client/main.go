// bot_client sends positions to a running bot. Each line on stdin is a list
// of moves from the starting position, e.g. "e2e4 e7e5 g1f3".
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/bot"
	"github.com/nighty/mlchess/config"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	nc, err := bot.Connect(context.Background(), cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-connect")
	}
	defer nc.Close()
	c := bot.NewClient(nc, cfg.GetString(config.ConfigNatsSubject))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		resp, err := c.RequestMove("", strings.Fields(scanner.Text()))
		if err != nil {
			log.Error().Err(err).Msg("request-failed")
			continue
		}
		fmt.Printf("bestmove %s score %d nodes %d\n", resp.BestMove, resp.Score, resp.Nodes)
	}
}
