package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/bot"
	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/runner"
)

func main() {
	// Determine the directory of the executable. Relative model paths are
	// resolved against it.
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	cfg.AdjustRelativePaths(exPath)
	log.Info().Str("exPath", exPath).Interface("settings", cfg.SanitizedSettings()).Msg("loaded-config")

	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := runner.NewEngineRunner(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-start-engine")
	}
	b := bot.NewBot(cfg, engine)
	if err := bot.Main(ctx, b); err != nil {
		log.Fatal().Err(err).Msg("bot-exited")
	}
	log.Info().Msg("server gracefully shutting down")
}
