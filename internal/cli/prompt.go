package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the command's input. Passwords are read without
// echo when the input is a terminal.
type prompter struct {
	in   *bufio.Reader
	out  io.Writer
	file *os.File // set when input is a real file, for terminal detection
}

func newPrompter(cmd *cobra.Command) *prompter {
	input := cmd.InOrStdin()
	p := &prompter{
		in:  bufio.NewReader(input),
		out: cmd.ErrOrStderr(),
	}
	if f, ok := input.(*os.File); ok {
		p.file = f
	}
	return p
}

// readLine prints prompt and returns the trimmed answer.
func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readRequired keeps asking until a non-empty answer is given.
func (p *prompter) readRequired(prompt string) (string, error) {
	for {
		answer, err := p.readLine(prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "  A value is required")
	}
}

// readPassword prompts for a secret. Echo is disabled on terminals.
func (p *prompter) readPassword(prompt string) (string, error) {
	if p.file != nil && term.IsTerminal(int(p.file.Fd())) {
		fmt.Fprint(p.out, prompt)
		b, err := term.ReadPassword(int(p.file.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return p.readLine(prompt)
}

// confirm asks a yes/no question. Only "y" and "yes" count as consent.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.readLine(question + " [y/N]: ")
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
