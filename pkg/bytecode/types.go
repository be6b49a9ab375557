package bytecode

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of DataType.
type Kind uint8

const (
	KindNone Kind = iota // absence of a type; element type of "[]"
	KindInt
	KindFloat
	KindChar
	KindBool
	KindList
	KindFunc
	KindGeneric
	KindError // result of an invalid operator application
)

var kindNames = map[Kind]string{
	KindNone:    "none",
	KindInt:     "int",
	KindFloat:   "float",
	KindChar:    "char",
	KindBool:    "bool",
	KindList:    "list",
	KindFunc:    "func",
	KindGeneric: "generic",
	KindError:   "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// DataType is a static type of the language. Lists carry their element
// type in Elem; functions carry their parameter types and return type.
type DataType struct {
	Kind   Kind
	Elem   *DataType
	Params []DataType
	Return *DataType
	Name   rune // generic type variable, e.g. 'A'
}

// Primitive types.
var (
	None      = DataType{Kind: KindNone}
	Int       = DataType{Kind: KindInt}
	Float     = DataType{Kind: KindFloat}
	Char      = DataType{Kind: KindChar}
	Bool      = DataType{Kind: KindBool}
	ErrorType = DataType{Kind: KindError}
)

// ListOf returns the list type with the given element type.
func ListOf(elem DataType) DataType {
	e := elem
	return DataType{Kind: KindList, Elem: &e}
}

// FuncOf returns the function type with the given signature.
func FuncOf(params []DataType, ret DataType) DataType {
	r := ret
	ps := make([]DataType, len(params))
	copy(ps, params)
	return DataType{Kind: KindFunc, Params: ps, Return: &r}
}

// GenericNamed returns the generic type variable with the given name.
func GenericNamed(name rune) DataType {
	return DataType{Kind: KindGeneric, Name: name}
}

// ElemType returns the element type of a list, or None.
func (t DataType) ElemType() DataType {
	if t.Kind != KindList || t.Elem == nil {
		return None
	}
	return *t.Elem
}

// ReturnType returns the return type of a function, or None.
func (t DataType) ReturnType() DataType {
	if t.Kind != KindFunc || t.Return == nil {
		return None
	}
	return *t.Return
}

// IsNumeric reports whether t is int or float.
func (t DataType) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

// IsError reports whether t is the error sentinel.
func (t DataType) IsError() bool {
	return t.Kind == KindError
}

// IsEmptyList reports whether t is the type of "[]".
func (t DataType) IsEmptyList() bool {
	return t.Kind == KindList && t.ElemType().Kind == KindNone
}

// HasGeneric reports whether a generic type variable occurs anywhere in t.
func (t DataType) HasGeneric() bool {
	switch t.Kind {
	case KindGeneric:
		return true
	case KindList:
		return t.ElemType().HasGeneric()
	case KindFunc:
		for _, p := range t.Params {
			if p.HasGeneric() {
				return true
			}
		}
		return t.ReturnType().HasGeneric()
	}
	return false
}

// Equal reports structural equality.
func (t DataType) Equal(o DataType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindList:
		return t.ElemType().Equal(o.ElemType())
	case KindFunc:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return t.ReturnType().Equal(o.ReturnType())
	case KindGeneric:
		return t.Name == o.Name
	}
	return true
}

// Band returns the address band that stores values of type t. Types
// without a runtime representation report false.
func (t DataType) Band() (Band, bool) {
	switch t.Kind {
	case KindInt:
		return BandInt, true
	case KindFloat:
		return BandFloat, true
	case KindChar:
		return BandChar, true
	case KindBool:
		return BandBool, true
	case KindFunc:
		return BandFunc, true
	case KindList:
		return BandList, true
	}
	return 0, false
}

func (t DataType) String() string {
	switch t.Kind {
	case KindList:
		if t.IsEmptyList() {
			return "[]"
		}
		return "[" + t.ElemType().String() + "]"
	case KindFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "(" + strings.Join(parts, ", ") + "): " + t.ReturnType().String()
	case KindGeneric:
		return string(t.Name)
	}
	return t.Kind.String()
}
