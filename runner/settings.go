package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/search"
)

// Engine options as announced over UCI.
const (
	OptionDepth         = "Depth"
	OptionAnalyzePieces = "AnalyzePieces"
	OptionAnalyzeMoves  = "AnalyzeMoves"
)

var ErrUnknownOption = errors.New("unknown option")

// SearchConfig reads the search limits out of cfg.
func SearchConfig(cfg *config.Config) search.Config {
	return search.Config{
		MaxDepth:     cfg.GetInt(config.ConfigSearchDepth),
		PieceBreadth: cfg.GetInt(config.ConfigSearchPieces),
		MoveBreadth:  cfg.GetInt(config.ConfigSearchMoves),
	}
}

// OptionDeclarations are the "option ..." lines of the UCI handshake.
func OptionDeclarations(sc search.Config) []string {
	return []string{
		fmt.Sprintf("option name %s type spin default %d min 1 max %d", OptionDepth, sc.MaxDepth, search.MaxDepth),
		fmt.Sprintf("option name %s type spin default %d min 1 max 64", OptionAnalyzePieces, sc.PieceBreadth),
		fmt.Sprintf("option name %s type spin default %d min 1 max 64", OptionAnalyzeMoves, sc.MoveBreadth),
	}
}

// SetOption changes one search limit. Names match case-insensitively. The
// session keeps its old limits if the new value is out of range.
func (r *EngineRunner) SetOption(name, value string) error {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("option %s: bad value %q", name, value)
	}
	sc := r.Config()
	var key string
	switch {
	case strings.EqualFold(name, OptionDepth):
		sc.MaxDepth, key = v, config.ConfigSearchDepth
	case strings.EqualFold(name, OptionAnalyzePieces):
		sc.PieceBreadth, key = v, config.ConfigSearchPieces
	case strings.EqualFold(name, OptionAnalyzeMoves):
		sc.MoveBreadth, key = v, config.ConfigSearchMoves
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	if err := r.SetConfig(sc); err != nil {
		return err
	}
	r.cfg.Set(key, v)
	return nil
}
