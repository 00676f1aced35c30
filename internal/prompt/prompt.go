// Package prompt implements the interactive yes/no questions asked by the
// convert and setup commands.
//
// Answers are read line by line from any io.Reader, so the same code serves
// a terminal, a pipe, and tests. Reaching end of input before an answer is
// read counts as an empty answer, which every question treats as "no".
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask writes question (without adding a newline) and returns the trimmed
// answer line. An answer cut short by end of input is still returned.
func (p *Prompter) Ask(question string) (string, error) {
	if _, err := fmt.Fprint(p.out, question); err != nil {
		return "", err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		// Keep the terminal tidy when input is exhausted.
		fmt.Fprintln(p.out)
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks question and reports whether the answer is "y" or "yes"
// (case-insensitive). Any other answer, including none, is "no".
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question)
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

// IsYes reports whether answer means yes.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
