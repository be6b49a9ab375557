package vm

import (
	"bufio"
	"io"
	"os"

	"github.com/lmorg/readline"
	"golang.org/x/term"
)

// InHandler supplies lines to the read instruction.
type InHandler interface {
	// Get returns the next line without its line terminator.
	Get(prompt string) (string, error)
}

// OutHandler receives the output of the print instruction.
type OutHandler interface {
	Write(s string)
}

// StandardInHandler reads from the terminal with line editing.
type StandardInHandler struct {
	rline *readline.Instance
}

func (iH *StandardInHandler) Get(prompt string) (string, error) {
	if iH.rline == nil {
		iH.rline = readline.NewInstance()
	}
	iH.rline.SetPrompt(prompt)
	return iH.rline.Readline()
}

// SimpleInHandler reads lines from any reader.
type SimpleInHandler struct {
	scanner *bufio.Scanner
}

func NewSimpleInHandler(in io.Reader) *SimpleInHandler {
	return &SimpleInHandler{scanner: bufio.NewScanner(in)}
}

func (iH *SimpleInHandler) Get(prompt string) (string, error) {
	if iH.scanner.Scan() {
		return iH.scanner.Text(), nil
	}
	if err := iH.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// SimpleOutHandler writes to any writer.
type SimpleOutHandler struct {
	output io.Writer
}

func NewSimpleOutHandler(out io.Writer) *SimpleOutHandler {
	return &SimpleOutHandler{output: out}
}

func (oH *SimpleOutHandler) Write(s string) {
	oH.output.Write([]byte(s))
}

// DefaultInHandler uses line editing when stdin is a terminal and a plain
// line reader otherwise.
func DefaultInHandler() InHandler {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return &StandardInHandler{}
	}
	return NewSimpleInHandler(os.Stdin)
}
