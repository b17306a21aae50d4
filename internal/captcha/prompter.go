package captcha

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNoInteractiveChannel is returned when nobody can be asked for a cookie.
var ErrNoInteractiveChannel = errors.New("no interactive terminal available to ask for a cookie")

const banner = `
╔══════════════════════════════════════════════════════════════╗
║  Google has detected unusual traffic and requires a CAPTCHA  ║
╚══════════════════════════════════════════════════════════════╝

  Blocked URL:
  %s

  1. Open the URL above in your browser
  2. Solve the CAPTCHA
  3. Copy the GOOGLE_ABUSE_EXEMPTION=... cookie

`

// TerminalPrompter asks on the controlling terminal: instructions go to Out,
// the pasted cookie is read from In.
type TerminalPrompter struct {
	In             io.Reader
	Out            io.Writer
	NonInteractive bool

	isTerminal func() bool
}

func NewTerminalPrompter(nonInteractive bool) *TerminalPrompter {
	return &TerminalPrompter{
		In:             os.Stdin,
		Out:            os.Stderr,
		NonInteractive: nonInteractive,
		isTerminal:     stdinIsTerminal,
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *TerminalPrompter) Request(ctx context.Context, challengeURL string) (string, error) {
	if p.NonInteractive || p.isTerminal == nil || !p.isTerminal() {
		return "", ErrNoInteractiveChannel
	}

	fmt.Fprintf(p.Out, banner, challengeURL)
	fmt.Fprint(p.Out, "  Paste cookie: ")

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("read cookie: %w", r.err)
		}
		cookie := strings.TrimSpace(r.line)
		if cookie == "" {
			return "", errors.New("no cookie entered")
		}
		return cookie, nil
	}
}
