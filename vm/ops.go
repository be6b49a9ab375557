package vm

import (
	"github.com/colang/co/pkg/bytecode"
)

// numeric unpacks a pair of numbers. isFloat is set when either one is a
// float, in which case both are returned as floats.
func numeric(a, b Value) (ia, ib int64, fa, fb float64, isFloat, ok bool) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return int64(x), int64(y), 0, 0, false, true
		case Float:
			return 0, 0, float64(x), float64(y), true, true
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return 0, 0, float64(x), float64(y), true, true
		case Float:
			return 0, 0, float64(x), float64(y), true, true
		}
	}
	return 0, 0, 0, 0, false, false
}

// arith applies an arithmetic opcode. Mixed int and float operands
// promote to float.
func arith(op bytecode.Opcode, a, b Value) (Value, error) {
	ia, ib, fa, fb, isFloat, ok := numeric(a, b)
	if !ok {
		return nil, errorf(ErrType, "%s on %v and %v", op, a, b)
	}
	if isFloat {
		switch op {
		case bytecode.OpAdd:
			return Float(fa + fb), nil
		case bytecode.OpSubtract:
			return Float(fa - fb), nil
		case bytecode.OpMultiply:
			return Float(fa * fb), nil
		case bytecode.OpDivide:
			return Float(fa / fb), nil
		}
	} else {
		switch op {
		case bytecode.OpAdd:
			return Int(ia + ib), nil
		case bytecode.OpSubtract:
			return Int(ia - ib), nil
		case bytecode.OpMultiply:
			return Int(ia * ib), nil
		case bytecode.OpDivide:
			if ib == 0 {
				return nil, errorf(ErrDivisionByZero, "%d / 0", ia)
			}
			return Int(ia / ib), nil
		}
	}
	return nil, errorf(ErrInvalidProgram, "%s is not arithmetic", op)
}

func equalScalar(a, b Value) (bool, error) {
	if ia, ib, fa, fb, isFloat, ok := numeric(a, b); ok {
		if isFloat {
			return fa == fb, nil
		}
		return ia == ib, nil
	}
	switch x := a.(type) {
	case Char:
		if y, ok := b.(Char); ok {
			return x == y, nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return x == y, nil
		}
	}
	return false, errorf(ErrType, "cannot compare %v and %v", a, b)
}

// order returns -1, 0 or 1 for numbers and chars.
func order(a, b Value) (int, error) {
	if ia, ib, fa, fb, isFloat, ok := numeric(a, b); ok {
		if isFloat {
			return cmp3(fa, fb), nil
		}
		return cmp3(ia, ib), nil
	}
	if x, ok := a.(Char); ok {
		if y, ok := b.(Char); ok {
			return cmp3(x, y), nil
		}
	}
	return 0, errorf(ErrType, "cannot order %v and %v", a, b)
}

func cmp3[T int64 | float64 | Char](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compare applies a comparison opcode. Equality also covers bools and
// lists; ordering covers numbers and chars.
func (m *VirtualMemory) compare(op bytecode.Opcode, a, b Value) (Value, error) {
	switch op {
	case bytecode.OpEqual, bytecode.OpNotEqual:
		eq, err := m.Equal(a, b)
		if err != nil {
			return nil, err
		}
		return Bool(eq == (op == bytecode.OpEqual)), nil
	}
	c, err := order(a, b)
	if err != nil {
		return nil, err
	}
	switch op {
	case bytecode.OpLessThan:
		return Bool(c < 0), nil
	case bytecode.OpGreaterThan:
		return Bool(c > 0), nil
	case bytecode.OpLessEqual:
		return Bool(c <= 0), nil
	case bytecode.OpGreaterEqual:
		return Bool(c >= 0), nil
	}
	return nil, errorf(ErrInvalidProgram, "%s is not a comparison", op)
}

func logic(op bytecode.Opcode, a, b Value) (Value, error) {
	x, ok1 := a.(Bool)
	y, ok2 := b.(Bool)
	if !ok1 || !ok2 {
		return nil, errorf(ErrType, "%s on %v and %v", op, a, b)
	}
	if op == bytecode.OpAnd {
		return x && y, nil
	}
	return x || y, nil
}

// unary applies not, negative or positive. On lists negative is the head
// and positive is the tail.
func (m *VirtualMemory) unary(op bytecode.Opcode, a Value) (Value, error) {
	switch x := a.(type) {
	case Bool:
		if op == bytecode.OpNot {
			return !x, nil
		}
	case Int:
		switch op {
		case bytecode.OpNegative:
			return -x, nil
		case bytecode.OpPositive:
			return x, nil
		}
	case Float:
		switch op {
		case bytecode.OpNegative:
			return -x, nil
		case bytecode.OpPositive:
			return x, nil
		}
	case List:
		switch op {
		case bytecode.OpNegative:
			return m.Car(x)
		case bytecode.OpPositive:
			return m.Cdr(x)
		}
	}
	return nil, errorf(ErrType, "%s on %v", op, a)
}
