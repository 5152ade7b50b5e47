// Package repl runs the interactive question loop.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultPrompt = "> "
	exitCommand   = "exit"
)

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Options configure Run.
type Options struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
	// Render formats an answer before printing. Nil prints it as is.
	Render func(answer string) string
	// OnError prints a failed question. Nil writes "Error: <err>" to Out.
	OnError func(err error)
}

// Run reads questions line by line until "exit", end of input, or ctx is
// done. Blank lines re-prompt. A failed question is reported and the loop
// continues. It returns the number of questions asked.
func Run(ctx context.Context, opts Options, asker Asker) (int, error) {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.In)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	asked := 0
	for {
		fmt.Fprint(opts.Out, prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			return asked, ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(opts.Out)
			select {
			case err := <-scanErr:
				return asked, err
			default:
				return asked, nil
			}
		}

		q := strings.TrimSpace(line)
		if q == "" {
			continue
		}
		if strings.EqualFold(q, exitCommand) {
			return asked, nil
		}

		asked++
		answer, err := asker.Ask(ctx, q)
		if err != nil {
			if opts.OnError != nil {
				opts.OnError(err)
			} else {
				fmt.Fprintf(opts.Out, "Error: %v\n", err)
			}
			continue
		}
		if opts.Render != nil {
			answer = opts.Render(answer)
		}
		fmt.Fprintln(opts.Out, answer)
	}
}
