package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Compile error kinds. Every error returned by the compiler is a
// *CompileError wrapping one of these.
var (
	ErrSyntax             = errors.New("syntax error")
	ErrRedeclared         = errors.New("redeclared symbol")
	ErrUndeclared         = errors.New("undeclared symbol")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrArity              = errors.New("wrong number of arguments")
	ErrGenericUnsupported = errors.New("generic types are not supported")
	ErrInvalidCall        = errors.New("invalid call target")
	ErrInternal           = errors.New("internal compiler error")
)

// CompileError is a located compilation failure.
type CompileError struct {
	Err  error
	Line int
	Col  int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%d:%d: %v", e.Line, e.Col, e.Err)
	}
	return fmt.Sprintf("%d:%d: %v: %s", e.Line, e.Col, e.Err, e.Msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func newError(kind error, pos Position, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Err:  kind,
		Line: pos.Line,
		Col:  pos.Column,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// FormatError renders err with a numbered source snippet and a caret under
// the offending column. Errors that carry no location are returned as their
// message.
//
//	type mismatch at 2:15: cannot assign float to int
//
//	   1 | main = do
//	   2 |   let x: int = 2.5
//	     |                ^
func FormatError(err error, src string) string {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return err.Error()
	}

	lines := strings.Split(src, "\n")
	line := clamp(ce.Line, 1, len(lines))
	col := ce.Col
	if col < 1 {
		col = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%v at %d:%d", ce.Err, ce.Line, ce.Col)
	if ce.Msg != "" {
		fmt.Fprintf(&sb, ": %s", ce.Msg)
	}
	sb.WriteString("\n\n")

	width := len(fmt.Sprint(line + 1))
	if line > 1 {
		fmt.Fprintf(&sb, "  %*d | %s\n", width, line-1, lines[line-2])
	}
	fmt.Fprintf(&sb, "  %*d | %s\n", width, line, lines[line-1])
	fmt.Fprintf(&sb, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&sb, "  %*d | %s\n", width, line+1, lines[line])
	}
	return sb.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
