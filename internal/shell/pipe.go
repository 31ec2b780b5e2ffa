package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
)

// Run reads commands from in until it ends. A terminal gets an interactive
// prompt; anything else is read as a pipe.
func (h *Handler) Run(ctx context.Context, in *os.File) error {
	if term.IsTerminal(int(in.Fd())) {
		return h.Interactive(ctx)
	}
	return h.Pipe(ctx, in)
}

// Pipe executes one command per line of in, printing OK after each
// success and an ERROR line after each failure. It stops at end of input,
// at an empty line or at quit. A line longer than config.MaxCommandLength
// aborts with ErrCommandTooLong.
func (h *Handler) Pipe(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, config.MaxCommandLength), config.MaxCommandLength)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || isExit(line) {
			return nil
		}
		h.runLine(ctx, line)
	}

	if err := sc.Err(); err != nil {
		if err == bufio.ErrTooLong {
			fmt.Fprintf(h.out, "ERROR: %v\n", errors.ErrCommandTooLong)
			return errors.Wrapf(errors.ErrCommandTooLong, "limit %d bytes", config.MaxCommandLength)
		}
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// Interactive runs a prompt on the terminal until quit, exit or Ctrl-D.
func (h *Handler) Interactive(ctx context.Context) error {
	p := prompt.New(
		func(line string) {
			line = strings.TrimSpace(line)
			if line == "" || isExit(line) {
				return
			}
			h.runLine(ctx, line)
		},
		complete,
		prompt.OptionPrefix(config.PromptPrefix),
		prompt.OptionTitle("rrdb"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(strings.TrimSpace(in))
		}),
	)
	p.Run()
	return ctx.Err()
}

// runLine parses and executes one line and reports the outcome on out.
func (h *Handler) runLine(ctx context.Context, line string) {
	if len(line) > config.MaxCommandLength {
		fmt.Fprintf(h.out, "ERROR: %v\n", errors.ErrCommandTooLong)
		return
	}

	req, err := ParseLine(line)
	if err == nil {
		err = h.Execute(ctx, req)
	}
	if err != nil {
		if errors.IsRequest(err) {
			log.Debug("command rejected", "line", line, "error", err)
		} else {
			log.Warn("command failed", "line", line, "code", errors.CodeName(errors.ExitCode(err)), "error", err)
		}
		fmt.Fprintf(h.out, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintln(h.out, "OK")
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true
	}
	return false
}

func complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	s := make([]prompt.Suggest, len(Commands))
	for i, c := range Commands {
		s[i] = prompt.Suggest{Text: string(c), Description: c.Usage()}
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}
