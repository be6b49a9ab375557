package vm

import (
	"errors"
	"fmt"

	"github.com/colang/co/pkg/bytecode"
)

// Runtime error kinds. Every error returned by Run wraps one of these.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrCorruptedList  = errors.New("corrupted list")
	ErrEmptyList      = errors.New("empty list")
	ErrType           = errors.New("type error")
	ErrRead           = errors.New("read error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNoMatch        = errors.New("no matching case")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrStackOverflow  = errors.New("call stack overflow")

	ErrInvalidProgram = bytecode.ErrInvalidProgram
)

// RuntimeError locates a failure in the instruction stream.
type RuntimeError struct {
	Err error           // one of the Err* kinds above
	IP  int             // index of the failing instruction, -1 before the first fetch
	Op  bytecode.Opcode // opcode of the failing instruction
	Msg string
}

func (e *RuntimeError) Error() string {
	where := "runtime error"
	if e.IP >= 0 {
		where = fmt.Sprintf("runtime error at %04d (%s)", e.IP, e.Op)
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", where, e.Err, e.Msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// errorf builds an unlocated RuntimeError; the run loop fills in IP and Op.
func errorf(kind error, format string, args ...any) error {
	return &RuntimeError{Err: kind, IP: -1, Msg: fmt.Sprintf(format, args...)}
}
