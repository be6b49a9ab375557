package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/colang/co/pkg/bytecode"
)

// Value is a runtime value. The set of implementations is closed: Int,
// Float, Char, Bool, List and Func.
type Value interface {
	// Band returns the address band values of this type are stored in.
	Band() bytecode.Band
	String() string
	isValue()
}

type (
	Int   int64
	Float float64
	Char  rune
	Bool  bool

	// List references the first cell of a list in the heap.
	List bytecode.ListValue

	// Func is a function literal or a closure with its captured context.
	Func struct {
		Fn *bytecode.FuncValue
	}
)

func (Int) Band() bytecode.Band   { return bytecode.BandInt }
func (Float) Band() bytecode.Band { return bytecode.BandFloat }
func (Char) Band() bytecode.Band  { return bytecode.BandChar }
func (Bool) Band() bytecode.Band  { return bytecode.BandBool }
func (List) Band() bytecode.Band  { return bytecode.BandList }
func (Func) Band() bytecode.Band  { return bytecode.BandFunc }

func (Int) isValue()   {}
func (Float) isValue() {}
func (Char) isValue()  {}
func (Bool) isValue()  {}
func (List) isValue()  {}
func (Func) isValue()  {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// String formats v so that it always reads back as a float: 5 prints
// as "5.0".
func (v Float) String() string {
	f := float64(v)
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

func (v Char) String() string { return string(rune(v)) }

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

func (v List) String() string { return fmt.Sprintf("<list@%d>", v.Cell) }

func (v Func) String() string {
	if v.Fn == nil {
		return "<func>"
	}
	return fmt.Sprintf("<func@%d>", v.Fn.Entry)
}

// IsEmpty reports whether v is the shared empty list.
func (v List) IsEmpty() bool {
	return v.Cell == bytecode.EmptyListCell
}

// Cast converts v for storage in band. Ints and floats convert into each
// other, truncating toward zero on float to int. Any other mismatch is
// ErrType.
func Cast(v Value, band bytecode.Band) (Value, error) {
	if v == nil {
		return nil, errorf(ErrType, "missing value for %s slot", band)
	}
	if v.Band() == band {
		return v, nil
	}
	switch x := v.(type) {
	case Int:
		if band == bytecode.BandFloat {
			return Float(x), nil
		}
	case Float:
		if band == bytecode.BandInt {
			return Int(int64(x)), nil
		}
	}
	return nil, errorf(ErrType, "cannot store %s in %s slot", v.Band(), band)
}

// FromFuncValue wraps a copy of fn.
func FromFuncValue(fn bytecode.FuncValue) Func {
	return Func{Fn: &fn}
}
