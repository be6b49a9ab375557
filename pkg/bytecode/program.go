package bytecode

import (
	"errors"
	"fmt"
)

// ProgramVersion is the current artifact format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// ProgramMagic prefixes every program file: "COQP" (co quadruple program).
var ProgramMagic = []byte{'C', 'O', 'Q', 'P'}

// ErrInvalidProgram is wrapped by every Validate failure.
var ErrInvalidProgram = errors.New("invalid program")

// Program is the artifact produced by the compiler and consumed by the VM:
// the instruction stream plus one literal table per band, keyed by literal
// address.
type Program struct {
	Version       uint16            `cbor:"1,keyasint"`
	Instructions  []Quadruple       `cbor:"2,keyasint"`
	IntLiterals   map[int]int64     `cbor:"3,keyasint"`
	FloatLiterals map[int]float64   `cbor:"4,keyasint"`
	CharLiterals  map[int]rune      `cbor:"5,keyasint"`
	BoolLiterals  map[int]bool      `cbor:"6,keyasint"`
	FuncLiterals  map[int]FuncValue `cbor:"7,keyasint"`
	ListLiterals  map[int]ListValue `cbor:"8,keyasint"`
}

// NewProgram creates an empty program with initialized literal tables.
func NewProgram() *Program {
	return &Program{
		Version:       ProgramVersion,
		IntLiterals:   make(map[int]int64),
		FloatLiterals: make(map[int]float64),
		CharLiterals:  make(map[int]rune),
		BoolLiterals:  make(map[int]bool),
		FuncLiterals:  make(map[int]FuncValue),
		ListLiterals:  make(map[int]ListValue),
	}
}

// LiteralCount returns the number of entries across all literal tables.
func (p *Program) LiteralCount() int {
	return len(p.IntLiterals) + len(p.FloatLiterals) + len(p.CharLiterals) +
		len(p.BoolLiterals) + len(p.FuncLiterals) + len(p.ListLiterals)
}

// Validate checks the structural invariants the VM relies on: every
// literal key lies in the literal band of its table (which makes the tables
// pairwise disjoint), every opcode is defined and every jump target and
// function entry is inside the instruction stream.
func (p *Program) Validate() error {
	if p.Version != ProgramVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrInvalidProgram, p.Version, ProgramVersion)
	}
	n := len(p.Instructions)
	if n == 0 {
		return fmt.Errorf("%w: no instructions", ErrInvalidProgram)
	}
	for i, q := range p.Instructions {
		if !q.Op.IsValid() {
			return fmt.Errorf("%w: instruction %d: unknown opcode 0x%02X", ErrInvalidProgram, i, byte(q.Op))
		}
		if q.Op.IsJump() && (q.Result < 0 || q.Result >= n) {
			return fmt.Errorf("%w: instruction %d: jump target %d out of range", ErrInvalidProgram, i, q.Result)
		}
	}

	checks := []struct {
		band Band
		keys []int
	}{
		{BandInt, keysOf(p.IntLiterals)},
		{BandFloat, keysOf(p.FloatLiterals)},
		{BandChar, keysOf(p.CharLiterals)},
		{BandBool, keysOf(p.BoolLiterals)},
		{BandFunc, keysOf(p.FuncLiterals)},
		{BandList, keysOf(p.ListLiterals)},
	}
	for _, c := range checks {
		for _, addr := range c.keys {
			seg, band, err := Classify(addr)
			if err != nil {
				return fmt.Errorf("%w: %s literal: %v", ErrInvalidProgram, c.band, err)
			}
			if seg != SegmentLiteral || band != c.band {
				return fmt.Errorf("%w: %s literal at %d lies in %s.%s", ErrInvalidProgram, c.band, addr, seg, band)
			}
		}
	}

	for addr, fn := range p.FuncLiterals {
		if fn.Entry < 0 || fn.Entry >= n {
			return fmt.Errorf("%w: function literal %d: entry %d out of range", ErrInvalidProgram, addr, fn.Entry)
		}
		if fn.ParamCount != len(fn.ParamAddresses) {
			return fmt.Errorf("%w: function literal %d: %d params, %d addresses",
				ErrInvalidProgram, addr, fn.ParamCount, len(fn.ParamAddresses))
		}
	}
	return nil
}

func keysOf[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
