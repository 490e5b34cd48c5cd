package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// linePrompter reads answers one line at a time.
// Secret answers are read without echo when the input is a terminal.
type linePrompter struct {
	in       *bufio.Reader
	fd       int
	terminal bool
	ui       *consoleUI
	user     string
}

func newLinePrompter(in io.Reader, ui *consoleUI, user string) *linePrompter {
	p := &linePrompter{
		in:   bufio.NewReader(in),
		ui:   ui,
		user: user,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.terminal = true
	}
	return p
}

func (p *linePrompter) Prompt(secret bool) (string, error) {
	p.ui.Prompt(p.user)
	if p.hidden(secret) {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.ui.out)
		if err != nil {
			return "", fmt.Errorf("error reading from stdin: %w", err)
		}
		return string(b), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// hidden reports whether the answer is read with echo turned off.
// Input typed or pasted ahead of the prompt is already in the buffer and already echoed,
// so it is read as a line instead of being left for the next prompt.
func (p *linePrompter) hidden(secret bool) bool {
	return secret && p.terminal && p.in.Buffered() == 0
}
