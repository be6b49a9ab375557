package compiler

import (
	"github.com/colang/co/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Operators and the type compatibility table
// ---------------------------------------------------------------------------

// operator is a source-level operator waiting on the operator stack.
type operator int

const (
	opPlaceholder operator = iota // false bottom for nested expressions
	opOr
	opAnd
	opEqual
	opNotEqual
	opLess
	opGreater
	opLessEqual
	opGreaterEqual
	opAdd
	opSubtract
	opMultiply
	opDivide
	opCons
	opAppend
	opNot
	opNegative
	opPositive
)

// Precedence levels, tightest first. The placeholder never matches a level.
const (
	precUnary       = 0
	precList        = 1
	precMultiply    = 2
	precAdd         = 3
	precRelational  = 4
	precAnd         = 5
	precOr          = 6
	precPlaceholder = -1
)

type operatorInfo struct {
	symbol string
	prec   int
	opcode bytecode.Opcode
}

var operatorTable = map[operator]operatorInfo{
	opPlaceholder:  {"(", precPlaceholder, 0},
	opOr:           {"|", precOr, bytecode.OpOr},
	opAnd:          {"&", precAnd, bytecode.OpAnd},
	opEqual:        {"==", precRelational, bytecode.OpEqual},
	opNotEqual:     {"!=", precRelational, bytecode.OpNotEqual},
	opLess:         {"<", precRelational, bytecode.OpLessThan},
	opGreater:      {">", precRelational, bytecode.OpGreaterThan},
	opLessEqual:    {"<=", precRelational, bytecode.OpLessEqual},
	opGreaterEqual: {">=", precRelational, bytecode.OpGreaterEqual},
	opAdd:          {"+", precAdd, bytecode.OpAdd},
	opSubtract:     {"-", precAdd, bytecode.OpSubtract},
	opMultiply:     {"*", precMultiply, bytecode.OpMultiply},
	opDivide:       {"/", precMultiply, bytecode.OpDivide},
	opCons:         {":", precList, bytecode.OpCons},
	opAppend:       {"++", precList, bytecode.OpAppend},
	opNot:          {"!", precUnary, bytecode.OpNot},
	opNegative:     {"-", precUnary, bytecode.OpNegative},
	opPositive:     {"+", precUnary, bytecode.OpPositive},
}

func (o operator) String() string { return operatorTable[o].symbol }
func (o operator) precedence() int { return operatorTable[o].prec }
func (o operator) opcode() bytecode.Opcode { return operatorTable[o].opcode }

// binaryOperators maps tokens to the operator they denote between operands.
var binaryOperators = map[TokenType]operator{
	TokenBar:       opOr,
	TokenAmp:       opAnd,
	TokenEq:        opEqual,
	TokenNotEq:     opNotEqual,
	TokenLess:      opLess,
	TokenGreater:   opGreater,
	TokenLessEq:    opLessEqual,
	TokenGreaterEq: opGreaterEqual,
	TokenPlus:      opAdd,
	TokenMinus:     opSubtract,
	TokenStar:      opMultiply,
	TokenSlash:     opDivide,
	TokenColon:     opCons,
	TokenConcat:    opAppend,
}

// unaryOperators maps prefix tokens to their operator.
var unaryOperators = map[TokenType]operator{
	TokenBang:  opNot,
	TokenMinus: opNegative,
	TokenPlus:  opPositive,
}

// unify merges two types that may contain the element type of "[]".
// None unifies with anything; lists unify element-wise.
func unify(a, b bytecode.DataType) (bytecode.DataType, bool) {
	if a.Kind == bytecode.KindNone {
		return b, true
	}
	if b.Kind == bytecode.KindNone {
		return a, true
	}
	if a.Kind == bytecode.KindList && b.Kind == bytecode.KindList {
		elem, ok := unify(a.ElemType(), b.ElemType())
		if !ok {
			return bytecode.ErrorType, false
		}
		return bytecode.ListOf(elem), true
	}
	if a.Equal(b) {
		return a, true
	}
	return bytecode.ErrorType, false
}

// assignable reports whether a value of type src may be stored in a slot of
// type dst. Ints widen to floats; lists unify.
func assignable(dst, src bytecode.DataType) bool {
	if dst.Kind == bytecode.KindFloat && src.Kind == bytecode.KindInt {
		return true
	}
	u, ok := unify(dst, src)
	return ok && u.Equal(dst)
}

// binaryResultType returns the static type of "a op b", or ErrorType.
func binaryResultType(op operator, a, b bytecode.DataType) bytecode.DataType {
	switch op {
	case opAdd, opSubtract, opMultiply, opDivide:
		if a.IsNumeric() && b.IsNumeric() {
			if a.Kind == bytecode.KindFloat || b.Kind == bytecode.KindFloat {
				return bytecode.Float
			}
			return bytecode.Int
		}

	case opAnd, opOr:
		if a.Kind == bytecode.KindBool && b.Kind == bytecode.KindBool {
			return bytecode.Bool
		}

	case opEqual, opNotEqual:
		switch {
		case a.IsNumeric() && b.IsNumeric():
			return bytecode.Bool
		case a.Kind == bytecode.KindChar && b.Kind == bytecode.KindChar:
			return bytecode.Bool
		case a.Kind == bytecode.KindBool && b.Kind == bytecode.KindBool:
			return bytecode.Bool
		case a.Kind == bytecode.KindList && b.Kind == bytecode.KindList:
			if _, ok := unify(a, b); ok {
				return bytecode.Bool
			}
		}

	case opLess, opGreater, opLessEqual, opGreaterEqual:
		if a.IsNumeric() && b.IsNumeric() {
			return bytecode.Bool
		}
		if a.Kind == bytecode.KindChar && b.Kind == bytecode.KindChar {
			return bytecode.Bool
		}

	case opCons:
		if b.Kind == bytecode.KindList && a.Kind != bytecode.KindNone {
			if elem, ok := unify(a, b.ElemType()); ok {
				return bytecode.ListOf(elem)
			}
		}

	case opAppend:
		if a.Kind == bytecode.KindList && b.Kind == bytecode.KindList {
			if t, ok := unify(a, b); ok {
				return t
			}
		}
	}
	return bytecode.ErrorType
}

// unaryResultType returns the static type of "op a", or ErrorType. On lists
// '-' takes the head and '+' the tail.
func unaryResultType(op operator, a bytecode.DataType) bytecode.DataType {
	switch op {
	case opNot:
		if a.Kind == bytecode.KindBool {
			return bytecode.Bool
		}
	case opNegative, opPositive:
		if a.IsNumeric() {
			return a
		}
		if a.Kind == bytecode.KindList && !a.IsEmptyList() {
			if op == opNegative {
				return a.ElemType()
			}
			return a
		}
	}
	return bytecode.ErrorType
}
