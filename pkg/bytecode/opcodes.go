package bytecode

import "fmt"

// Opcode is the operator of a quadruple.
// Opcodes are organized into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Arithmetic (0x10-0x1F)
	// ========================================================================

	OpAdd      Opcode = 0x10 // result = first + second
	OpSubtract Opcode = 0x11 // result = first - second
	OpMultiply Opcode = 0x12 // result = first * second
	OpDivide   Opcode = 0x13 // result = first / second

	// ========================================================================
	// Logical (0x20-0x2F)
	// ========================================================================

	OpAnd Opcode = 0x20 // result = first & second
	OpOr  Opcode = 0x21 // result = first | second
	OpNot Opcode = 0x22 // result = !first

	// ========================================================================
	// Unary sign (0x28-0x2F) - on lists these are cdr and car
	// ========================================================================

	OpPositive Opcode = 0x28 // result = +first, or tail of a list
	OpNegative Opcode = 0x29 // result = -first, or head of a list

	// ========================================================================
	// Comparison (0x30-0x3F)
	// ========================================================================

	OpEqual        Opcode = 0x30
	OpNotEqual     Opcode = 0x31
	OpLessThan     Opcode = 0x32
	OpGreaterThan  Opcode = 0x33
	OpLessEqual    Opcode = 0x34
	OpGreaterEqual Opcode = 0x35

	// ========================================================================
	// Data movement (0x40-0x4F)
	// ========================================================================

	OpAssign Opcode = 0x40 // result = first, cast to the result band

	// ========================================================================
	// Lists (0x50-0x5F)
	// ========================================================================

	OpCons   Opcode = 0x50 // result = first : second
	OpAppend Opcode = 0x51 // result = first ++ second

	// ========================================================================
	// Control flow (0x60-0x6F)
	// ========================================================================

	OpGoTo      Opcode = 0x60 // ip = result
	OpGoToFalse Opcode = 0x61 // if !first { ip = result }
	OpGoToTrue  Opcode = 0x62 // if first { ip = result }

	// ========================================================================
	// Functions (0x70-0x7F)
	// ========================================================================

	OpImportCon  Opcode = 0x70 // capture: func literal first, source second, destination result
	OpAlloc      Opcode = 0x71 // begin a call to first
	OpArg        Opcode = 0x72 // push argument first at position result
	OpCall       Opcode = 0x73 // enter first
	OpReceiveRes Opcode = 0x74 // result = return register
	OpReturn     Opcode = 0x75 // return register = first; leave frame

	// ========================================================================
	// Console (0x80-0x8F)
	// ========================================================================

	OpRead  Opcode = 0x80 // result = parsed line from input
	OpPrint Opcode = 0x81 // write first

	// ========================================================================
	// Halting (0xF0-0xFF)
	// ========================================================================

	OpNoMatch Opcode = 0xFE // no function case matched the arguments
	OpEnd     Opcode = 0xFF // stop
)

// ResultKind describes how the result slot of a quadruple is interpreted.
type ResultKind uint8

const (
	ResultNone    ResultKind = iota // unused
	ResultAddress                   // destination virtual address
	ResultTarget                    // instruction index (backpatched)
	ResultIndex                     // argument position
)

// OpcodeInfo provides metadata about each opcode for disassembly and validation.
type OpcodeInfo struct {
	Name   string     // Human-readable name
	Inputs int        // How many of first/second hold source addresses
	Result ResultKind // Meaning of the result slot
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Arithmetic
	OpAdd:      {"add", 2, ResultAddress},
	OpSubtract: {"subtract", 2, ResultAddress},
	OpMultiply: {"multiply", 2, ResultAddress},
	OpDivide:   {"divide", 2, ResultAddress},

	// Logical
	OpAnd: {"and", 2, ResultAddress},
	OpOr:  {"or", 2, ResultAddress},
	OpNot: {"not", 1, ResultAddress},

	// Unary sign
	OpPositive: {"positive", 1, ResultAddress},
	OpNegative: {"negative", 1, ResultAddress},

	// Comparison
	OpEqual:        {"equal", 2, ResultAddress},
	OpNotEqual:     {"notEqual", 2, ResultAddress},
	OpLessThan:     {"lessThan", 2, ResultAddress},
	OpGreaterThan:  {"greaterThan", 2, ResultAddress},
	OpLessEqual:    {"lessEqual", 2, ResultAddress},
	OpGreaterEqual: {"greaterEqual", 2, ResultAddress},

	OpAssign: {"assign", 1, ResultAddress},

	// Lists
	OpCons:   {"cons", 2, ResultAddress},
	OpAppend: {"append", 2, ResultAddress},

	// Control flow
	OpGoTo:      {"goTo", 0, ResultTarget},
	OpGoToFalse: {"goToFalse", 1, ResultTarget},
	OpGoToTrue:  {"goToTrue", 1, ResultTarget},

	// Functions
	OpImportCon:  {"importCon", 2, ResultAddress},
	OpAlloc:      {"alloc", 1, ResultNone},
	OpArg:        {"arg", 1, ResultIndex},
	OpCall:       {"call", 1, ResultNone},
	OpReceiveRes: {"receiveRes", 0, ResultAddress},
	OpReturn:     {"ret", 1, ResultNone},

	// Console
	OpRead:  {"read", 0, ResultAddress},
	OpPrint: {"print", 1, ResultNone},

	OpNoMatch: {"noMatch", 0, ResultNone},
	OpEnd:     {"end", 0, ResultNone},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// IsValid reports whether op is a defined opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsJump returns true if this opcode transfers control to its result slot.
func (op Opcode) IsJump() bool {
	return op >= OpGoTo && op <= OpGoToTrue
}

// IsArithmetic returns true for the four arithmetic operators.
func (op Opcode) IsArithmetic() bool {
	return op >= OpAdd && op <= OpDivide
}

// IsComparison returns true for the relational operators.
func (op Opcode) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterEqual
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
