package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/runner"
	"github.com/nighty/mlchess/shell"
)

var (
	GitVersion string
)

// UCI owns stdout, so all logging goes to stderr.
func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

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
		setupLogging(false)
		log.Fatal().Err(err).Msg("bad-config")
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	cfg.AdjustRelativePaths(exPath)
	log.Debug().Str("version", GitVersion).Str("exPath", exPath).Msg("starting")
	log.Debug().Interface("settings", cfg.SanitizedSettings()).Msg("loaded-config")

	if cfg.GetString(config.ConfigCPUProfile) != "" {
		f, err := os.Create(cfg.GetString(config.ConfigCPUProfile))
		if err != nil {
			panic("could not create CPU profile: " + err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := runner.NewEngineRunner(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-start-engine")
	}
	sc := shell.NewShellController(cfg, engine)

	if cfg.GetString(config.ConfigMode) == config.ModeUCI {
		if err := sc.UCILoop(ctx, os.Stdin); err != nil {
			// deferred profile stop would be skipped by log.Fatal
			pprof.StopCPUProfile()
			log.Fatal().Err(err).Msg("uci-loop")
		}
		return
	}

	idleConnsClosed := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		cancel()
		close(idleConnsClosed)
	}()

	go sc.Loop(ctx, sig)
	<-idleConnsClosed
	log.Info().Msg("shutting down")
}
