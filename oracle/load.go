package oracle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/config"
)

// Load builds the oracle named by the oracle-backend setting. The engine
// cannot run without one, so callers treat an error here as fatal.
func Load(ctx context.Context, cfg *config.Config) (Oracle, error) {
	backend := cfg.GetString(config.ConfigOracleBackend)
	log.Info().Str("backend", backend).Msg("loading-oracle")
	switch backend {
	case config.BackendONNX:
		return LoadONNX(ctx, cfg)
	case config.BackendRandom:
		log.Warn().Msg("random oracle in use; moves are not model-guided")
		return NewRandom(cfg.GetUint64(config.ConfigOracleSeed)), nil
	}
	return nil, fmt.Errorf("%w: unknown oracle backend %q", config.ErrBadConfig, backend)
}
