package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Default is the answer assumed for an empty reply.
type Default int

const (
	DefaultNone Default = iota // an explicit answer is required
	DefaultYes
	DefaultNo
)

var answers = map[string]bool{
	"yes": true,
	"y":   true,
	"ye":  true,
	"no":  false,
	"n":   false,
}

// suffix returns the hint appended to the question.
func (d Default) suffix() string {
	switch d {
	case DefaultYes:
		return " [Y/n] "
	case DefaultNo:
		return " [y/N] "
	default:
		return " [y/n] "
	}
}

// Confirm asks question on out and reads yes/no answers line by line from in.
// An empty line or end of input selects def; without a default, end of input
// is an error. Unrecognized answers repeat the question.
func Confirm(in io.Reader, out io.Writer, question string, def Default) (bool, error) {
	r, ok := in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(in)
	}
	for {
		fmt.Fprint(out, question+def.suffix()) // nolint:errcheck

		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}
		choice := strings.ToLower(strings.TrimSpace(line))

		if choice == "" && def != DefaultNone {
			return def == DefaultYes, nil
		}
		if v, ok := answers[choice]; ok {
			return v, nil
		}

		if errors.Is(err, io.EOF) {
			if def == DefaultNone {
				return false, fmt.Errorf("read answer: %w", io.ErrUnexpectedEOF)
			}
			return def == DefaultYes, nil
		}
		fmt.Fprint(out, "Please respond with 'yes' or 'no' (or 'y' or 'n').\n") // nolint:errcheck
	}
}

// Asker asks yes/no questions, using an interactive form when In is a terminal.
// Successive questions share one buffered reader over In.
type Asker struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

// Confirm asks question and returns the answer.
func (a *Asker) Confirm(question string, def Default) (bool, error) {
	if f, ok := a.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return confirmForm(question, def)
	}
	if a.r == nil {
		a.r = bufio.NewReader(a.In)
	}
	return Confirm(a.r, a.Out, question, def)
}

// confirmForm shows a huh confirm dialog preselected with def.
func confirmForm(question string, def Default) (bool, error) {
	answer := def == DefaultYes
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirm form: %w", err)
	}
	return answer, nil
}
