package vm

import (
	"errors"
	"testing"

	"github.com/colang/co/pkg/bytecode"
)

func literalProgram() *bytecode.Program {
	p := bytecode.NewProgram()
	p.IntLiterals[18000] = 7
	p.FloatLiterals[19000] = 1.5
	p.CharLiterals[20000] = 'q'
	p.BoolLiterals[21000] = true
	p.FuncLiterals[22000] = bytecode.FuncValue{Entry: 0}
	p.ListLiterals[23000] = bytecode.EmptyList()
	return p
}

func TestMemoryLiterals(t *testing.T) {
	m := NewVirtualMemory(literalProgram())

	tests := []struct {
		addr int
		want Value
	}{
		{18000, Int(7)},
		{19000, Float(1.5)},
		{20000, Char('q')},
		{21000, Bool(true)},
		{23000, List{Cell: bytecode.EmptyListCell}},
	}
	for _, tc := range tests {
		got, err := m.Get(tc.addr)
		if err != nil {
			t.Errorf("Get(%d): %v", tc.addr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Get(%d) = %#v, want %#v", tc.addr, got, tc.want)
		}
	}

	if m.HeapSize() != 1 {
		t.Errorf("HeapSize = %d, want 1", m.HeapSize())
	}
	if c, err := m.ReadDynamicCell(bytecode.EmptyListCell); err != nil || !c.IsEmpty() {
		t.Errorf("heap[0] = %+v, %v, want the empty cell", c, err)
	}
}

func TestMemoryLiteralsReadOnly(t *testing.T) {
	m := NewVirtualMemory(literalProgram())

	if err := m.Set(18000, Int(1)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Set(int literal) error = %v, want %v", err, ErrInvalidAddress)
	}
	if v, _ := m.Get(18000); v != Int(7) {
		t.Errorf("int literal changed to %v", v)
	}

	f := FromFuncValue(bytecode.FuncValue{Entry: 4})
	if err := m.Set(22000, f); err != nil {
		t.Errorf("Set(func literal): %v", err)
	}
	if v, _ := m.Get(22000); v.(Func).Fn.Entry != 4 {
		t.Errorf("func literal = %v, want entry 4", v)
	}
}

func TestMemoryGlobals(t *testing.T) {
	m := NewVirtualMemory(bytecode.NewProgram())

	if _, err := m.Get(3); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Get(unset) error = %v, want %v", err, ErrInvalidAddress)
	}
	if err := m.Set(3, Int(10)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := m.Get(3); v != Int(10) {
		t.Errorf("Get(3) = %v, want 10", v)
	}
	if err := m.Set(3, Float(1)); !errors.Is(err, ErrType) {
		t.Errorf("Set(float into int band) error = %v, want %v", err, ErrType)
	}
}

func TestMemoryFrames(t *testing.T) {
	m := NewVirtualMemory(bytecode.NewProgram())

	if err := m.Set(6000, Int(1)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Set without frame error = %v, want %v", err, ErrInvalidAddress)
	}

	m.PushLocal(0)
	m.Set(6000, Int(1))
	m.Set(12000, Int(2))

	m.PushLocal(2)
	if _, err := m.Get(6000); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Get in new frame error = %v, want %v", err, ErrInvalidAddress)
	}
	m.Set(6000, Int(5))
	if v, _ := m.Get(6000); v != Int(5) {
		t.Errorf("inner Get(6000) = %v, want 5", v)
	}
	if m.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", m.Depth())
	}

	if err := m.PopLocal(); err != nil {
		t.Fatalf("PopLocal: %v", err)
	}
	if v, _ := m.Get(6000); v != Int(1) {
		t.Errorf("outer Get(6000) = %v, want 1", v)
	}
	if v, _ := m.Get(12000); v != Int(2) {
		t.Errorf("outer Get(12000) = %v, want 2", v)
	}

	m.PopLocal()
	if err := m.PopLocal(); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("PopLocal on empty stack error = %v, want %v", err, ErrInvalidAddress)
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	m := NewVirtualMemory(bytecode.NewProgram())
	for _, addr := range []int{-1, bytecode.AddressLimit, 99999} {
		if _, err := m.Get(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Get(%d) error = %v, want %v", addr, err, ErrInvalidAddress)
		}
		if err := m.Set(addr, Int(0)); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Set(%d) error = %v, want %v", addr, err, ErrInvalidAddress)
		}
	}
}

func TestMemoryHeap(t *testing.T) {
	m := NewVirtualMemory(bytecode.NewProgram())

	v := m.WriteDynamicValue(Char('z'))
	c := m.WriteDynamicCell(bytecode.ListCell{Value: v, Next: bytecode.EmptyListCell})
	if v != 1 || c != 2 {
		t.Fatalf("heap addresses = %d, %d, want 1, 2", v, c)
	}

	if got, err := m.ReadDynamicValue(v); err != nil || got != Char('z') {
		t.Errorf("ReadDynamicValue(%d) = %v, %v", v, got, err)
	}
	if got, err := m.ReadDynamicCell(c); err != nil || got.Value != v {
		t.Errorf("ReadDynamicCell(%d) = %+v, %v", c, got, err)
	}

	// Slots are typed: a value is not a cell and the reverse.
	if _, err := m.ReadDynamicCell(v); !errors.Is(err, ErrCorruptedList) {
		t.Errorf("ReadDynamicCell(value slot) error = %v, want %v", err, ErrCorruptedList)
	}
	if _, err := m.ReadDynamicValue(c); !errors.Is(err, ErrCorruptedList) {
		t.Errorf("ReadDynamicValue(cell slot) error = %v, want %v", err, ErrCorruptedList)
	}
	if _, err := m.ReadDynamicValue(100); !errors.Is(err, ErrCorruptedList) {
		t.Errorf("ReadDynamicValue(100) error = %v, want %v", err, ErrCorruptedList)
	}
}
