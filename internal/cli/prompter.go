package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"golang.org/x/term"
)

// TerminalPrompter asks on the terminal whether to retag a changed entry.
// On a real terminal a single keypress answers; otherwise one line is read.
// Y, y or Enter accept, n declines. Anything else aborts the run, including
// q, Ctrl-C, Ctrl-D, end of input and unrecognized answers.
type TerminalPrompter struct {
	in             io.Reader
	out            io.Writer
	reader         *bufio.Reader
	ignoreCategory bool
}

// NewTerminalPrompter creates a prompter reading in and writing out
func NewTerminalPrompter(in io.Reader, out io.Writer, ignoreCategory bool) *TerminalPrompter {
	return &TerminalPrompter{
		in:             in,
		out:            out,
		reader:         bufio.NewReader(in),
		ignoreCategory: ignoreCategory,
	}
}

var _ retag.Prompter = (*TerminalPrompter)(nil)

// Confirm shows the current and proposed entries and waits for an answer
func (p *TerminalPrompter) Confirm(ctx context.Context, u ledger.Update) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.out, "\nTransaction %s was tagged before and its itemization changed.\n", u.Original.ID)
	writeComparison(p.out, u, p.ignoreCategory)

	fmt.Fprint(p.out, "Retag this transaction? [Y/n/q] ")
	answer, err := p.readAnswer()
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return false, retag.ErrAborted
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch answer {
	case "", "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	case "q", "quit", "\x03", "\x04":
		return false, retag.ErrAborted
	default:
		fmt.Fprintf(p.out, "Unrecognized answer %q, aborting\n", answer)
		return false, retag.ErrAborted
	}
}

func (p *TerminalPrompter) readAnswer() (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return p.readKey(f)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// readKey reads one keypress with the terminal in raw mode.
func (p *TerminalPrompter) readKey(f *os.File) (string, error) {
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return "", err
	}
	defer func() { _ = term.Restore(int(f.Fd()), state) }()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, "\r\n")

	key := strings.ToLower(string(buf))
	if key == "\r" || key == "\n" {
		return "", nil
	}
	return key, nil
}

func writeComparison(w io.Writer, u ledger.Update, ignoreCategory bool) {
	current := u.Original.Children
	if len(current) == 0 {
		current = []*ledger.Transaction{u.Original}
	}
	for i, c := range current {
		fmt.Fprintf(w, "%d) Current: \t%s\n", i+1, c.DryRunString(ignoreCategory))
	}
	for i, n := range u.Proposed {
		fmt.Fprintf(w, "%d) Proposed: \t%s\n", i+1, n.DryRunString(ignoreCategory))
	}
}
