package vm

import (
	"github.com/colang/co/pkg/bytecode"
)

// heapSlot holds either an element value or a list cell.
type heapSlot struct {
	value  Value
	cell   bytecode.ListCell
	isCell bool
}

// VirtualMemory maps virtual addresses to values.
//
// Global and literal addresses resolve to flat maps. Local and temp
// addresses resolve to the frame on top of the frame stack. The heap is a
// separate 0-based address space that only grows; slot 0 is the empty
// list cell every list ends in.
type VirtualMemory struct {
	globals  map[int]Value
	literals map[int]Value
	frames   []map[int]Value
	heap     []heapSlot
}

// NewVirtualMemory creates memory with p's literal tables loaded.
func NewVirtualMemory(p *bytecode.Program) *VirtualMemory {
	m := &VirtualMemory{
		globals:  make(map[int]Value),
		literals: make(map[int]Value, p.LiteralCount()),
		heap:     []heapSlot{{cell: bytecode.EmptyCell(), isCell: true}},
	}
	for addr, v := range p.IntLiterals {
		m.literals[addr] = Int(v)
	}
	for addr, v := range p.FloatLiterals {
		m.literals[addr] = Float(v)
	}
	for addr, v := range p.CharLiterals {
		m.literals[addr] = Char(v)
	}
	for addr, v := range p.BoolLiterals {
		m.literals[addr] = Bool(v)
	}
	for addr, v := range p.FuncLiterals {
		m.literals[addr] = FromFuncValue(v)
	}
	for addr := range p.ListLiterals {
		// The only list literal is [], which always names the empty cell.
		m.literals[addr] = List(bytecode.EmptyList())
	}
	return m
}

// Get returns the value stored at addr.
func (m *VirtualMemory) Get(addr int) (Value, error) {
	seg, _, err := bytecode.Classify(addr)
	if err != nil {
		return nil, errorf(ErrInvalidAddress, "%v", err)
	}
	var v Value
	var ok bool
	switch seg {
	case bytecode.SegmentGlobal:
		v, ok = m.globals[addr]
	case bytecode.SegmentLiteral:
		v, ok = m.literals[addr]
	default:
		frame, err := m.top(addr)
		if err != nil {
			return nil, err
		}
		v, ok = frame[addr]
	}
	if !ok {
		return nil, errorf(ErrInvalidAddress, "read of unset address %s", bytecode.FormatAddress(addr))
	}
	return v, nil
}

// Set stores v at addr. v must already belong to addr's band. Literals
// are read-only except function literals, which importCon rewrites.
func (m *VirtualMemory) Set(addr int, v Value) error {
	seg, band, err := bytecode.Classify(addr)
	if err != nil {
		return errorf(ErrInvalidAddress, "%v", err)
	}
	if v == nil || v.Band() != band {
		return errorf(ErrType, "cannot store %v in %s", v, bytecode.FormatAddress(addr))
	}
	switch seg {
	case bytecode.SegmentGlobal:
		m.globals[addr] = v
	case bytecode.SegmentLiteral:
		if band != bytecode.BandFunc {
			return errorf(ErrInvalidAddress, "write to constant %s", bytecode.FormatAddress(addr))
		}
		m.literals[addr] = v
	default:
		frame, err := m.top(addr)
		if err != nil {
			return err
		}
		frame[addr] = v
	}
	return nil
}

func (m *VirtualMemory) top(addr int) (map[int]Value, error) {
	if len(m.frames) == 0 {
		return nil, errorf(ErrInvalidAddress, "%s accessed with no active frame", bytecode.FormatAddress(addr))
	}
	return m.frames[len(m.frames)-1], nil
}

// PushLocal activates a new frame for local and temp addresses.
func (m *VirtualMemory) PushLocal(sizeHint int) {
	m.frames = append(m.frames, make(map[int]Value, sizeHint))
}

// PopLocal discards the active frame.
func (m *VirtualMemory) PopLocal() error {
	if len(m.frames) == 0 {
		return errorf(ErrInvalidAddress, "pop with no active frame")
	}
	m.frames[len(m.frames)-1] = nil
	m.frames = m.frames[:len(m.frames)-1]
	return nil
}

// Depth returns the number of active frames.
func (m *VirtualMemory) Depth() int {
	return len(m.frames)
}

// WriteDynamicValue appends an element value to the heap and returns its
// heap address.
func (m *VirtualMemory) WriteDynamicValue(v Value) int {
	m.heap = append(m.heap, heapSlot{value: v})
	return len(m.heap) - 1
}

// ReadDynamicValue returns the element value at heap address addr.
func (m *VirtualMemory) ReadDynamicValue(addr int) (Value, error) {
	if addr < 0 || addr >= len(m.heap) || m.heap[addr].isCell {
		return nil, errorf(ErrCorruptedList, "heap address %d holds no value", addr)
	}
	return m.heap[addr].value, nil
}

// WriteDynamicCell appends a list cell to the heap and returns its heap
// address.
func (m *VirtualMemory) WriteDynamicCell(c bytecode.ListCell) int {
	m.heap = append(m.heap, heapSlot{cell: c, isCell: true})
	return len(m.heap) - 1
}

// ReadDynamicCell returns the list cell at heap address addr.
func (m *VirtualMemory) ReadDynamicCell(addr int) (bytecode.ListCell, error) {
	if addr < 0 || addr >= len(m.heap) || !m.heap[addr].isCell {
		return bytecode.ListCell{}, errorf(ErrCorruptedList, "heap address %d holds no cell", addr)
	}
	return m.heap[addr].cell, nil
}

// HeapSize returns the number of heap slots in use, the empty cell
// included.
func (m *VirtualMemory) HeapSize() int {
	return len(m.heap)
}
