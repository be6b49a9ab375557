package compiler

import (
	"fmt"

	"github.com/colang/co/pkg/bytecode"
)

// SymbolKind classifies a symbol table entry.
type SymbolKind int

const (
	SymbolNone SymbolKind = iota
	SymbolConst
	SymbolFunc
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolConst:
		return "const"
	case SymbolFunc:
		return "func"
	default:
		return "none"
	}
}

// Entry is one named binding.
type Entry struct {
	Name     string
	Type     bytecode.DataType
	Kind     SymbolKind
	Address  int
	Assigned bool
	Pos      Position
}

// ScopeID indexes a scope in the symbol table arena.
type ScopeID int

// GlobalScope is the root scope every table starts with.
const GlobalScope ScopeID = 0

// noScope marks the parent of the root.
const noScope ScopeID = -1

type scope struct {
	parent  ScopeID
	frame   ScopeID // scope that owns the call frame this scope lives in
	entries map[string]*Entry
	order   []*Entry
}

// SymbolTable stores scopes in an arena. Scopes refer to their parent by
// id, and lookups walk those ids to the root.
type SymbolTable struct {
	scopes []scope
}

// NewSymbolTable creates a table holding only the global scope.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{}
	t.scopes = append(t.scopes, scope{
		parent:  noScope,
		frame:   GlobalScope,
		entries: make(map[string]*Entry),
	})
	return t
}

// NewScope creates a child of parent. A frame scope starts a new call frame
// (a function body or main); other scopes share their parent's frame.
func (t *SymbolTable) NewScope(parent ScopeID, frame bool) ScopeID {
	id := ScopeID(len(t.scopes))
	f := t.scopes[parent].frame
	if frame {
		f = id
	}
	t.scopes = append(t.scopes, scope{
		parent:  parent,
		frame:   f,
		entries: make(map[string]*Entry),
	})
	return id
}

// Parent returns the parent of id, or false for the global scope.
func (t *SymbolTable) Parent(id ScopeID) (ScopeID, bool) {
	p := t.scopes[id].parent
	return p, p != noScope
}

// Frame returns the frame scope id belongs to.
func (t *SymbolTable) Frame(id ScopeID) ScopeID {
	return t.scopes[id].frame
}

// Insert adds e to scope id. Names are unique per scope; inner scopes may
// shadow outer ones.
func (t *SymbolTable) Insert(id ScopeID, e *Entry) error {
	s := &t.scopes[id]
	if _, exists := s.entries[e.Name]; exists {
		return fmt.Errorf("%q already declared in this scope", e.Name)
	}
	s.entries[e.Name] = e
	s.order = append(s.order, e)
	return nil
}

// Lookup finds name starting at scope id and walking outward. It returns
// the entry and the scope that holds it.
func (t *SymbolTable) Lookup(id ScopeID, name string) (*Entry, ScopeID, bool) {
	for cur := id; cur != noScope; cur = t.scopes[cur].parent {
		if e, ok := t.scopes[cur].entries[name]; ok {
			return e, cur, true
		}
	}
	return nil, noScope, false
}

// LookupLocal finds name in scope id only.
func (t *SymbolTable) LookupLocal(id ScopeID, name string) (*Entry, bool) {
	e, ok := t.scopes[id].entries[name]
	return e, ok
}

// Entries returns the entries of scope id in declaration order.
func (t *SymbolTable) Entries(id ScopeID) []*Entry {
	return t.scopes[id].order
}

// FrameEntries returns every entry visible from id that lives in the same
// frame as id, nearest declaration first. Shadowed names appear once.
func (t *SymbolTable) FrameEntries(id ScopeID) []*Entry {
	frame := t.Frame(id)
	if frame == GlobalScope {
		return nil
	}
	seen := make(map[string]bool)
	var out []*Entry
	for cur := id; cur != noScope && t.scopes[cur].frame == frame; cur = t.scopes[cur].parent {
		entries := t.scopes[cur].order
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			out = append(out, e)
		}
	}
	return out
}
