package bytecode

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so that compiling the same source twice
// yields byte-identical artifacts.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Program to magic-prefixed CBOR bytes.
func Marshal(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	out := make([]byte, 0, len(ProgramMagic)+len(body))
	out = append(out, ProgramMagic...)
	return append(out, body...), nil
}

// Hash returns the SHA-256 content hash of p's canonical encoding. Two
// compilations of the same source hash the same.
func Hash(p *Program) ([32]byte, error) {
	data, err := Marshal(p)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Unmarshal deserializes a Program and validates it.
func Unmarshal(data []byte) (*Program, error) {
	if !bytes.HasPrefix(data, ProgramMagic) {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w: bad magic", ErrInvalidProgram)
	}
	p := NewProgram()
	if err := cbor.Unmarshal(data[len(ProgramMagic):], p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	p.ensureTables()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	return p, nil
}

// WriteFile writes p to path.
func WriteFile(path string, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads and validates the program stored at path.
func ReadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ensureTables replaces nil literal tables left by decoding empty maps.
func (p *Program) ensureTables() {
	if p.IntLiterals == nil {
		p.IntLiterals = make(map[int]int64)
	}
	if p.FloatLiterals == nil {
		p.FloatLiterals = make(map[int]float64)
	}
	if p.CharLiterals == nil {
		p.CharLiterals = make(map[int]rune)
	}
	if p.BoolLiterals == nil {
		p.BoolLiterals = make(map[int]bool)
	}
	if p.FuncLiterals == nil {
		p.FuncLiterals = make(map[int]FuncValue)
	}
	if p.ListLiterals == nil {
		p.ListLiterals = make(map[int]ListValue)
	}
}
