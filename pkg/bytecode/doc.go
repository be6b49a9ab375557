// Package bytecode defines the quadruple intermediate representation shared
// by the co compiler and virtual machine.
//
// A compiled program is a linear sequence of quadruples (op, first, second,
// result) whose operands are plain integers called virtual addresses. The
// numeric range of an address encodes both where the value lives and what
// static type it has:
//
//	segment   base    bands (1000 addresses each)
//	global        0   int float char bool func list
//	local      6000   int float char bool func list
//	temp      12000   int float char bool func list
//	literal   18000   int float char bool func list
//
// Classify recovers the (segment, band) pair of any address with a range
// check, so the VM never needs a side table to know how to store a value.
//
// # Components
//
//   - DataType: the static type lattice (int, float, char, bool, lists and
//     function signatures) used by the type checker.
//
//   - Opcode / Quadruple / InstructionQueue: the instruction set and the
//     append-only queue the generator writes into. Jump targets are the only
//     fields ever rewritten, through FillResult.
//
//   - FuncValue / ListValue: the runtime shapes of function and list values.
//     Function literals carry their entry point, parameter addresses, per-band
//     frame sizes and the captured context that importCon fills in.
//
//   - Program: the serialized artifact handed from the compiler to the VM,
//     encoded as canonical CBOR.
//
// # Lists
//
// Lists live in a separate, append-only heap addressed from zero. Heap
// address 0 always holds the canonical empty cell, so every list literal
// ("[]") starts out pointing at the same cell and an empty-list comparison
// is a pointer comparison first.
package bytecode
