// Package vm executes compiled co programs.
//
// A VirtualMachine walks the quadruple stream of a bytecode.Program one
// instruction at a time. Operands are virtual addresses that VirtualMemory
// resolves to the global segment, the literal segment or the top call frame
// (local and temp addresses). Lists live in a separate append-only heap of
// value slots and cells; heap address 0 is the shared empty list.
//
// Jumps store target-1 in the instruction pointer and the fetch loop
// advances it, so every instruction that transfers control goes through
// the same increment. A call saves the address of the call quadruple and
// ret restores it, which resumes execution at the receiveRes that follows.
//
// Values are a closed set of types (Int, Float, Char, Bool, List, Func)
// implementing Value. Writes cast to the band of the destination address:
// an int stored in a float slot becomes a float and a float stored in an
// int slot is truncated.
package vm
