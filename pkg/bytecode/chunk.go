package bytecode

import "fmt"

// Quadruple is a single three-address instruction. Unused operand slots
// hold NoAddress.
type Quadruple struct {
	Op     Opcode `cbor:"1,keyasint"`
	First  int    `cbor:"2,keyasint"`
	Second int    `cbor:"3,keyasint"`
	Result int    `cbor:"4,keyasint"`
}

// Quad builds a quadruple.
func Quad(op Opcode, first, second, result int) Quadruple {
	return Quadruple{Op: op, First: first, Second: second, Result: result}
}

func (q Quadruple) String() string {
	info := GetOpcodeInfo(q.Op)
	res := FormatAddress(q.Result)
	switch info.Result {
	case ResultTarget, ResultIndex:
		res = fmt.Sprintf("%d", q.Result)
	}
	return fmt.Sprintf("%-12s %-12s %-12s %s", info.Name, FormatAddress(q.First), FormatAddress(q.Second), res)
}

// InstructionQueue is the append-only instruction buffer written by the
// code generator. Only jump targets may be rewritten after emission.
type InstructionQueue struct {
	quads []Quadruple
}

// NewInstructionQueue creates an empty queue.
func NewInstructionQueue() *InstructionQueue {
	return &InstructionQueue{}
}

// Push appends a quadruple and returns its index.
func (q *InstructionQueue) Push(quad Quadruple) int {
	q.quads = append(q.quads, quad)
	return len(q.quads) - 1
}

// Emit is shorthand for Push(Quad(...)).
func (q *InstructionQueue) Emit(op Opcode, first, second, result int) int {
	return q.Push(Quad(op, first, second, result))
}

// Len returns the number of emitted quadruples, which is also the index the
// next quadruple will get.
func (q *InstructionQueue) Len() int {
	return len(q.quads)
}

// At returns the quadruple at index i.
func (q *InstructionQueue) At(i int) Quadruple {
	return q.quads[i]
}

// FillResult backpatches the result slot of the jump at index i.
func (q *InstructionQueue) FillResult(i, target int) error {
	if i < 0 || i >= len(q.quads) {
		return fmt.Errorf("fill result: index %d out of range [0,%d)", i, len(q.quads))
	}
	if !q.quads[i].Op.IsJump() {
		return fmt.Errorf("fill result: instruction %d is %s, not a jump", i, q.quads[i].Op)
	}
	q.quads[i].Result = target
	return nil
}

// Quadruples returns a copy of the emitted instructions.
func (q *InstructionQueue) Quadruples() []Quadruple {
	out := make([]Quadruple, len(q.quads))
	copy(out, q.quads)
	return out
}
