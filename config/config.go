package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug           = "debug"
	ConfigMode            = "mode"
	ConfigSearchDepth     = "search-depth"
	ConfigSearchPieces    = "search-pieces"
	ConfigSearchMoves     = "search-moves"
	ConfigOracleBackend   = "oracle-backend"
	ConfigOracleFromModel = "oracle-from-model"
	ConfigOracleToModel   = "oracle-to-model"
	ConfigOracleSeed      = "oracle-seed"
	ConfigNatsURL         = "nats-url"
	ConfigNatsSubject     = "nats-subject"
	ConfigCPUProfile      = "cpu-profile"
)

const (
	ModeUCI   = "uci"
	ModeShell = "shell"

	BackendONNX   = "onnx"
	BackendRandom = "random"

	// MaxSearchDepth bounds the recursion; each ply multiplies the work by
	// pieces*moves.
	MaxSearchDepth = 32
)

var ErrBadConfig = errors.New("bad configuration")

// Config wraps a viper instance. Values come from (highest first) flags,
// MLCHESS_* environment variables, an optional config.yaml, and defaults.
type Config struct {
	*viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigMode, ModeUCI)
	v.SetDefault(ConfigSearchDepth, 4)
	v.SetDefault(ConfigSearchPieces, 6)
	v.SetDefault(ConfigSearchMoves, 6)
	v.SetDefault(ConfigOracleBackend, BackendONNX)
	v.SetDefault(ConfigOracleFromModel, "./model/chess_from.onnx")
	v.SetDefault(ConfigOracleToModel, "./model/chess.onnx")
	v.SetDefault(ConfigOracleSeed, 0)
	v.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	v.SetDefault(ConfigNatsSubject, "mlchess.bot")
	v.SetDefault(ConfigCPUProfile, "")
}

// DefaultConfig returns a config holding only the defaults. Tests use it.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	return Config{Viper: v}
}

func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	setDefaults(c.Viper)

	fs := pflag.NewFlagSet("mlchess", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigMode, ModeUCI, "uci (protocol on stdin/stdout) or shell (interactive)")
	fs.Int(ConfigSearchDepth, 4, "search depth in plies")
	fs.Int(ConfigSearchPieces, 6, "top-ranked source squares examined per ply")
	fs.Int(ConfigSearchMoves, 6, "legal destinations examined per source square")
	fs.String(ConfigOracleBackend, BackendONNX, "onnx or random")
	fs.String(ConfigOracleFromModel, "./model/chess_from.onnx", "from-square model (.onnx or .onnx.zst)")
	fs.String(ConfigOracleToModel, "./model/chess.onnx", "to-square model (.onnx or .onnx.zst)")
	fs.Uint64(ConfigOracleSeed, 0, "seed for the random backend; 0 seeds from entropy")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "NATS server for bot mode")
	fs.String(ConfigNatsSubject, "mlchess.bot", "NATS subject the bot listens on")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix("mlchess")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.AutomaticEnv()

	c.SetConfigName("config")
	c.SetConfigType("yaml")
	c.AddConfigPath("$HOME/.mlchess")
	c.AddConfigPath(".")
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return c.Validate()
}

// Validate checks the search breadth and depth settings and the backend.
func (c *Config) Validate() error {
	d, p, m := c.GetInt(ConfigSearchDepth), c.GetInt(ConfigSearchPieces), c.GetInt(ConfigSearchMoves)
	switch {
	case d < 1 || d > MaxSearchDepth:
		return fmt.Errorf("%w: %s must be in [1, %d], got %d", ErrBadConfig, ConfigSearchDepth, MaxSearchDepth, d)
	case p < 1 || p > 64:
		return fmt.Errorf("%w: %s must be in [1, 64], got %d", ErrBadConfig, ConfigSearchPieces, p)
	case m < 1 || m > 64:
		return fmt.Errorf("%w: %s must be in [1, 64], got %d", ErrBadConfig, ConfigSearchMoves, m)
	}
	switch c.GetString(ConfigOracleBackend) {
	case BackendONNX, BackendRandom:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrBadConfig, ConfigOracleBackend, c.GetString(ConfigOracleBackend))
	}
	switch c.GetString(ConfigMode) {
	case ModeUCI, ModeShell:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrBadConfig, ConfigMode, c.GetString(ConfigMode))
	}
	return nil
}

// AdjustRelativePaths resolves relative model paths against basepath, so the
// binary finds its models regardless of the working directory.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, key := range []string{ConfigOracleFromModel, ConfigOracleToModel} {
		p := c.GetString(key)
		if p != "" && !filepath.IsAbs(p) {
			c.Set(key, filepath.Join(basepath, p))
		}
	}
}

// SanitizedSettings is the settings map suitable for logging. A password in
// the NATS URL is masked.
func (c *Config) SanitizedSettings() map[string]any {
	out := map[string]any{}
	for _, k := range c.AllKeys() {
		out[k] = c.Get(k)
	}
	if u, err := url.Parse(c.GetString(ConfigNatsURL)); err == nil {
		out[ConfigNatsURL] = u.Redacted()
	}
	return out
}
