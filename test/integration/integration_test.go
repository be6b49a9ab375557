package integration_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/colang/co/compiler"
	"github.com/colang/co/manifest"
	"github.com/colang/co/pkg/bytecode"
	"github.com/colang/co/vm"
)

const examplesDir = "../../examples"

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// exampleNames lists the programs under examples/ that have an expected
// output file.
func exampleNames(t *testing.T) []string {
	t.Helper()
	outs, err := filepath.Glob(filepath.Join(examplesDir, "*.out"))
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) == 0 {
		t.Fatal("no examples found")
	}
	var names []string
	for _, out := range outs {
		names = append(names, strings.TrimSuffix(filepath.Base(out), ".out"))
	}
	sort.Strings(names)
	return names
}

func readExample(t *testing.T, name, ext string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(examplesDir, name+ext))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && ext == ".in" {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

// compileToFile compiles source and writes the artifact the way coc does,
// then reads it back the way covm does.
func compileToFile(t *testing.T, name, source string) *bytecode.Program {
	t.Helper()
	prog, err := compiler.Compile(source)
	if err != nil {
		t.Fatalf("compile %s:\n%s", name, compiler.FormatError(err, source))
	}
	path := filepath.Join(t.TempDir(), name+".coq")
	if err := bytecode.WriteFile(path, prog); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := bytecode.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return loaded
}

func run(t *testing.T, prog *bytecode.Program, input string) string {
	t.Helper()
	var out bytes.Buffer
	m, err := vm.New(prog, vm.Options{
		In:       vm.NewSimpleInHandler(strings.NewReader(input)),
		Out:      vm.NewSimpleOutHandler(&out),
		MaxSteps: 1000000,
	})
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v\noutput so far: %q", err, out.String())
	}
	return out.String()
}

// ---------------------------------------------------------------------------
// Example programs
// ---------------------------------------------------------------------------

func TestExamples(t *testing.T) {
	for _, name := range exampleNames(t) {
		t.Run(name, func(t *testing.T) {
			source := readExample(t, name, ".co")
			prog := compileToFile(t, name, source)
			got := run(t, prog, readExample(t, name, ".in"))
			if want := readExample(t, name, ".out"); got != want {
				t.Errorf("output = %q, want %q", got, want)
			}
		})
	}
}

func TestExamplesRoundTripStable(t *testing.T) {
	for _, name := range exampleNames(t) {
		source := readExample(t, name, ".co")
		prog, err := compiler.Compile(source)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		loaded := compileToFile(t, name, source)

		want, err := bytecode.Hash(prog)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		got, err := bytecode.Hash(loaded)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if got != want {
			t.Errorf("%s: artifact hash changed across a write and read", name)
		}
	}
}

func TestExamplesManifest(t *testing.T) {
	m, err := manifest.Load(examplesDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, err := os.ReadFile(m.EntryPath())
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	prog := compileToFile(t, "entry", string(data))
	if got := run(t, prog, ""); got != readExample(t, "fact", ".out") {
		t.Errorf("entry output = %q", got)
	}
	if filepath.Base(m.OutputPath()) != "fact.coq" {
		t.Errorf("OutputPath = %q, want build/fact.coq", m.OutputPath())
	}
}

// ---------------------------------------------------------------------------
// Failures surface with their kind
// ---------------------------------------------------------------------------

func TestPipelineErrors(t *testing.T) {
	if _, err := compiler.Compile("main = do print(undefinedName)"); !errors.Is(err, compiler.ErrUndeclared) {
		t.Errorf("compile error = %v, want %v", err, compiler.ErrUndeclared)
	}

	prog := compileToFile(t, "div", "let z: int = 0\nmain = do print(1 / z)")
	m, err := vm.New(prog, vm.Options{Out: vm.NewSimpleOutHandler(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	err = m.Run()
	var re *vm.RuntimeError
	if !errors.As(err, &re) || !errors.Is(err, vm.ErrDivisionByZero) {
		t.Fatalf("Run error = %v, want a division by zero RuntimeError", err)
	}
	if re.Op != bytecode.OpDivide {
		t.Errorf("failing op = %s, want %s", re.Op, bytecode.OpDivide)
	}
}
