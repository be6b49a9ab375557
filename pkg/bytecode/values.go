package bytecode

// EmptyListCell is the heap address of the canonical empty cell.
const EmptyListCell = 0

// ListValue is a reference to the first cell of a list in the heap.
type ListValue struct {
	Cell int `cbor:"1,keyasint"`
}

// EmptyList returns the value every "[]" literal is bound to.
func EmptyList() ListValue {
	return ListValue{Cell: EmptyListCell}
}

// ListCell is one heap cell: the heap address of its element and the heap
// address of the next cell. A cell with both links absent is empty.
type ListCell struct {
	Value int
	Next  int
}

// EmptyCell returns the terminating cell.
func EmptyCell() ListCell {
	return ListCell{Value: NoAddress, Next: NoAddress}
}

// IsEmpty reports whether c terminates a list.
func (c ListCell) IsEmpty() bool {
	return c.Value == NoAddress && c.Next == NoAddress
}

// FuncContext holds the values a closure captured when it was created,
// keyed by the callee-frame address each one is installed at on call.
type FuncContext struct {
	Ints   map[int]int64     `cbor:"1,keyasint,omitempty"`
	Floats map[int]float64   `cbor:"2,keyasint,omitempty"`
	Chars  map[int]rune      `cbor:"3,keyasint,omitempty"`
	Bools  map[int]bool      `cbor:"4,keyasint,omitempty"`
	Funcs  map[int]FuncValue `cbor:"5,keyasint,omitempty"`
	Lists  map[int]ListValue `cbor:"6,keyasint,omitempty"`
}

// Len returns the number of captured values.
func (c FuncContext) Len() int {
	return len(c.Ints) + len(c.Floats) + len(c.Chars) + len(c.Bools) + len(c.Funcs) + len(c.Lists)
}

// Clone returns a copy whose maps can be written without affecting c.
func (c FuncContext) Clone() FuncContext {
	return FuncContext{
		Ints:   cloneMap(c.Ints),
		Floats: cloneMap(c.Floats),
		Chars:  cloneMap(c.Chars),
		Bools:  cloneMap(c.Bools),
		Funcs:  cloneMap(c.Funcs),
		Lists:  cloneMap(c.Lists),
	}
}

func cloneMap[V any](m map[int]V) map[int]V {
	out := make(map[int]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FuncValue is a function literal or closure.
type FuncValue struct {
	Entry          int         `cbor:"1,keyasint"` // index of the first body instruction
	ParamCount     int         `cbor:"2,keyasint"`
	ParamAddresses []int       `cbor:"3,keyasint"`
	TempCounts     BandCounts  `cbor:"4,keyasint"`
	ConstCounts    BandCounts  `cbor:"5,keyasint"`
	Context        FuncContext `cbor:"6,keyasint"`
}

// FrameSize returns the number of frame slots a call needs.
func (f FuncValue) FrameSize() int {
	return f.TempCounts.Total() + f.ConstCounts.Total()
}
