package vm

import (
	"strings"

	"github.com/colang/co/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// List heap operations
// ---------------------------------------------------------------------------

// Cons returns a new list with v in front of tail. tail is shared.
func (m *VirtualMemory) Cons(v Value, tail List) List {
	slot := m.WriteDynamicValue(v)
	return List{Cell: m.WriteDynamicCell(bytecode.ListCell{Value: slot, Next: tail.Cell})}
}

// cell reads the cell l starts at and rejects half-linked cells.
func (m *VirtualMemory) cell(l List) (bytecode.ListCell, error) {
	c, err := m.ReadDynamicCell(l.Cell)
	if err != nil {
		return c, err
	}
	if !c.IsEmpty() && (c.Value == bytecode.NoAddress || c.Next == bytecode.NoAddress) {
		return c, errorf(ErrCorruptedList, "cell %d has a missing link", l.Cell)
	}
	return c, nil
}

// Car returns the first element of l.
func (m *VirtualMemory) Car(l List) (Value, error) {
	c, err := m.cell(l)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, errorf(ErrEmptyList, "head of []")
	}
	return m.ReadDynamicValue(c.Value)
}

// Cdr returns l without its first element. The result shares l's cells.
func (m *VirtualMemory) Cdr(l List) (List, error) {
	c, err := m.cell(l)
	if err != nil {
		return List{}, err
	}
	if c.IsEmpty() {
		return List{}, errorf(ErrEmptyList, "tail of []")
	}
	return List{Cell: c.Next}, nil
}

// cells returns the non-empty cells of l in order.
func (m *VirtualMemory) cells(l List) ([]bytecode.ListCell, error) {
	var out []bytecode.ListCell
	for addr := l.Cell; ; {
		c, err := m.cell(List{Cell: addr})
		if err != nil {
			return nil, err
		}
		if c.IsEmpty() {
			return out, nil
		}
		out = append(out, c)
		if len(out) > len(m.heap) {
			return nil, errorf(ErrCorruptedList, "cycle through cell %d", l.Cell)
		}
		addr = c.Next
	}
}

// Append returns a ++ b. The cells of a are copied so that a is unchanged;
// element slots and all of b are shared.
func (m *VirtualMemory) Append(a, b List) (List, error) {
	cells, err := m.cells(a)
	if err != nil {
		return List{}, err
	}
	if _, err := m.cell(b); err != nil {
		return List{}, err
	}
	next := b.Cell
	for i := len(cells) - 1; i >= 0; i-- {
		next = m.WriteDynamicCell(bytecode.ListCell{Value: cells[i].Value, Next: next})
	}
	return List{Cell: next}, nil
}

// Elements returns the elements of l in order.
func (m *VirtualMemory) Elements(l List) ([]Value, error) {
	cells, err := m.cells(l)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(cells))
	for _, c := range cells {
		v, err := m.ReadDynamicValue(c.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Equal compares two values structurally. Lists are equal when they have
// the same length and pairwise equal elements. Functions cannot be
// compared.
func (m *VirtualMemory) Equal(a, b Value) (bool, error) {
	type pair struct{ a, b Value }
	work := []pair{{a, b}}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		la, aIsList := p.a.(List)
		lb, bIsList := p.b.(List)
		if !aIsList || !bIsList {
			if aIsList || bIsList {
				return false, errorf(ErrType, "cannot compare %v and %v", p.a, p.b)
			}
			eq, err := equalScalar(p.a, p.b)
			if err != nil || !eq {
				return false, err
			}
			continue
		}
		if la.Cell == lb.Cell {
			continue
		}
		ca, err := m.cell(la)
		if err != nil {
			return false, err
		}
		cb, err := m.cell(lb)
		if err != nil {
			return false, err
		}
		if ca.IsEmpty() || cb.IsEmpty() {
			return false, nil
		}
		ha, err := m.ReadDynamicValue(ca.Value)
		if err != nil {
			return false, err
		}
		hb, err := m.ReadDynamicValue(cb.Value)
		if err != nil {
			return false, err
		}
		work = append(work, pair{List{Cell: ca.Next}, List{Cell: cb.Next}}, pair{ha, hb})
	}
	return true, nil
}

// Format renders v the way print writes it. Lists print their elements.
func (m *VirtualMemory) Format(v Value) (string, error) {
	l, ok := v.(List)
	if !ok {
		return v.String(), nil
	}
	elems, err := m.Elements(l)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := m.Format(e)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteByte(']')
	return sb.String(), nil
}
