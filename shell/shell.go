// Package shell is the command surface of the engine: a UCI loop for chess
// GUIs on stdin/stdout, and an interactive readline shell that accepts the
// same commands plus a few diagnostics.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/config"
	"github.com/nighty/mlchess/runner"
)

const (
	EngineName   = "NightyBot"
	EngineAuthor = "Nighty"
)

type Mode int

const (
	UCIMode Mode = iota
	InteractiveMode
)

var (
	errNoData            = errors.New("no data in line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errUnknownCommand    = errors.New("unknown command")
)

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	cfg    *config.Config
	engine *runner.EngineRunner
	mode   Mode

	quitting bool
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController wraps an engine. Output goes to stdout until
// SetOutput says otherwise.
func NewShellController(cfg *config.Config, engine *runner.EngineRunner) *ShellController {
	return &ShellController{cfg: cfg, engine: engine, out: os.Stdout}
}

func (sc *ShellController) SetOutput(w io.Writer) {
	sc.out = w
}

func (sc *ShellController) SetMode(m Mode) {
	sc.mode = m
}

func (sc *ShellController) Engine() *runner.EngineRunner {
	return sc.engine
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	if sc.mode == UCIMode {
		sc.showMessage("info string error " + err.Error())
		return
	}
	sc.showMessage("Error: " + err.Error())
}

// isOptionName accepts "-file" and "-n" but not "-" or "-1", which appear
// in FEN fields and option values.
func isOptionName(s string) bool {
	return len(s) > 1 && s[0] == '-' && unicode.IsLetter(rune(s[1]))
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := map[string]string{}

	for idx := 1; idx < len(fields); idx++ {
		if isOptionName(fields[idx]) {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			options[fields[idx][1:]] = fields[idx+1]
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

// handle runs one command line. A nil Response means there is nothing to
// print.
func (sc *ShellController) handle(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "uci":
		return sc.uci(cmd)
	case "isready":
		return msg("readyok"), nil
	case "ucinewgame", "new":
		sc.engine.NewGame()
		return nil, nil
	case "position":
		return sc.position(cmd)
	case "go":
		return sc.goCmd(ctx, cmd)
	case "setoption":
		return sc.setOption(cmd)
	case "d", "show":
		return msg(sc.engine.Position().ToDisplayText()), nil
	case "predict":
		return sc.predict(ctx, cmd)
	case "bench":
		return sc.bench(ctx, cmd)
	case "help":
		if len(cmd.args) == 0 {
			return msg(usage()), nil
		}
		return msg(usageTopic(cmd.args[0])), nil
	case "quit", "exit", "bye":
		sc.quitting = true
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownCommand, cmd.cmd)
}

// Loop runs the interactive shell until EOF, interrupt, or "exit".
func (sc *ShellController) Loop(ctx context.Context, sig chan os.Signal) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mmlchess>\033[0m ",
		HistoryFile:     "/tmp/mlchess_readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Error().Err(err).Msg("could not start readline")
		sig <- syscall.SIGINT
		return
	}
	sc.l = l
	sc.out = l.Stdout()
	sc.mode = InteractiveMode
	defer sc.l.Close()

	for !sc.quitting {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.handle(ctx, line)
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msg("exiting readline loop")
	sig <- syscall.SIGINT
}
