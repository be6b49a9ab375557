package compiler

import (
	"errors"

	"github.com/colang/co/pkg/bytecode"
)

// Compile compiles co source into a program.
func Compile(source string) (*bytecode.Program, error) {
	a, err := Analyze(source)
	if err != nil {
		return nil, err
	}
	return a.Program, nil
}

// Analysis is the result of compiling a source file for tooling. Symbols
// holds every declaration seen before compilation stopped, so it is
// populated even when Err is set.
type Analysis struct {
	Program *bytecode.Program
	Symbols []SymbolInfo
	Err     error
}

// Analyze compiles source and reports its declarations. The returned
// error is the same as Analysis.Err.
func Analyze(source string) (*Analysis, error) {
	gen := NewCodeGenerator()
	p := NewParser(source, gen)

	a := &Analysis{}
	err := p.ParseProgram()
	if err == nil {
		a.Program, err = gen.Finish()
	}
	a.Symbols = gen.Symbols()
	if err != nil {
		var ce *CompileError
		if !errors.As(err, &ce) {
			err = newError(ErrInternal, p.curToken.Pos, "%v", err)
		}
		a.Err = err
		a.Program = nil
		log.Debugf("compile failed: %v", err)
		return a, err
	}
	log.Debugf("compiled %d instructions, %d literals", len(a.Program.Instructions), a.Program.LiteralCount())
	return a, nil
}
