package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/board"
	"github.com/nighty/mlchess/runner"
)

// isFatal reports whether a UCI error should stop the engine. The GUI is
// trusted to send well-formed, legal moves; if it doesn't, the game state
// can no longer be trusted either.
func isFatal(err error) bool {
	return errors.Is(err, board.ErrIllegalMove) ||
		errors.Is(err, board.ErrMalformedMove) ||
		errors.Is(err, runner.ErrBadPositionCommand)
}

// UCILoop reads UCI commands from in until "quit" or EOF. It returns an
// error only for input that leaves the game state unusable.
func (sc *ShellController) UCILoop(ctx context.Context, in io.Reader) error {
	sc.mode = UCIMode
	sc.quitting = false
	scanner := bufio.NewScanner(in)
	for !sc.quitting && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp, err := sc.handle(ctx, line)
		if err != nil {
			if isFatal(err) {
				return fmt.Errorf("uci %q: %w", line, err)
			}
			if errors.Is(err, errUnknownCommand) {
				log.Debug().Str("line", line).Msg("ignoring-unknown-command")
				continue
			}
			log.Error().Err(err).Str("line", line).Msg("uci-command-failed")
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	return scanner.Err()
}
