package bytecode

import "testing"

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		typ  DataType
		want string
	}{
		{Int, "int"},
		{Float, "float"},
		{ListOf(Char), "[char]"},
		{ListOf(None), "[]"},
		{ListOf(ListOf(Int)), "[[int]]"},
		{FuncOf([]DataType{Int, Float}, Bool), "(int, float): bool"},
		{FuncOf(nil, ListOf(Int)), "(): [int]"},
		{GenericNamed('A'), "A"},
	}
	for _, tc := range tests {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestDataTypeEqual(t *testing.T) {
	tests := []struct {
		a, b DataType
		want bool
	}{
		{Int, Int, true},
		{Int, Float, false},
		{ListOf(Int), ListOf(Int), true},
		{ListOf(Int), ListOf(Float), false},
		{FuncOf([]DataType{Int}, Int), FuncOf([]DataType{Int}, Int), true},
		{FuncOf([]DataType{Int}, Int), FuncOf([]DataType{Int, Int}, Int), false},
		{FuncOf([]DataType{Int}, Int), FuncOf([]DataType{Int}, Bool), false},
		{GenericNamed('A'), GenericNamed('B'), false},
	}
	for _, tc := range tests {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Errorf("%s.Equal(%s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDataTypeBand(t *testing.T) {
	tests := []struct {
		typ  DataType
		band Band
		ok   bool
	}{
		{Int, BandInt, true},
		{Float, BandFloat, true},
		{Char, BandChar, true},
		{Bool, BandBool, true},
		{FuncOf(nil, Int), BandFunc, true},
		{ListOf(Int), BandList, true},
		{None, 0, false},
		{GenericNamed('T'), 0, false},
		{ErrorType, 0, false},
	}
	for _, tc := range tests {
		band, ok := tc.typ.Band()
		if ok != tc.ok || (ok && band != tc.band) {
			t.Errorf("%s.Band() = %s, %v, want %s, %v", tc.typ, band, ok, tc.band, tc.ok)
		}
	}
}

func TestHasGeneric(t *testing.T) {
	if !ListOf(GenericNamed('A')).HasGeneric() {
		t.Errorf("[A] should contain a generic")
	}
	if !FuncOf([]DataType{Int}, GenericNamed('B')).HasGeneric() {
		t.Errorf("(int): B should contain a generic")
	}
	if FuncOf([]DataType{Int}, ListOf(Int)).HasGeneric() {
		t.Errorf("(int): [int] has no generic")
	}
}

func TestFuncOfCopiesParams(t *testing.T) {
	params := []DataType{Int}
	f := FuncOf(params, Int)
	params[0] = Float
	if !f.Params[0].Equal(Int) {
		t.Errorf("FuncOf aliased its params slice")
	}
}
