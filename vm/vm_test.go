package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/colang/co/compiler"
	"github.com/colang/co/pkg/bytecode"
)

const none = bytecode.NoAddress

func q(op bytecode.Opcode, a, b, r int) bytecode.Quadruple {
	return bytecode.Quad(op, a, b, r)
}

// program builds a program from code followed by end.
func program(code ...bytecode.Quadruple) *bytecode.Program {
	p := bytecode.NewProgram()
	p.Instructions = append(code, q(bytecode.OpEnd, none, none, none))
	return p
}

func runProgram(t *testing.T, p *bytecode.Program, input string, opts Options) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.In = NewSimpleInHandler(strings.NewReader(input))
	opts.Out = NewSimpleOutHandler(&out)
	m, err := New(p, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Run()
	return out.String(), err
}

func runSource(t *testing.T, src, input string, opts Options) (string, error) {
	t.Helper()
	p, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v\n%s", err, compiler.FormatError(err, src))
	}
	return runProgram(t, p, input, opts)
}

func TestRunNumericPromotion(t *testing.T) {
	p := program(
		q(bytecode.OpAdd, 18000, 19000, 13000), // 3 + 2.0
		q(bytecode.OpPrint, 13000, none, none),
		q(bytecode.OpAdd, 18000, 18001, 12000), // 3 + 2
		q(bytecode.OpPrint, 12000, none, none),
		q(bytecode.OpAssign, 19001, none, 0), // int slot gets 2.9
		q(bytecode.OpPrint, 0, none, none),
		q(bytecode.OpAssign, 18000, none, 1000), // float slot gets 3
		q(bytecode.OpPrint, 1000, none, none),
	)
	p.IntLiterals[18000] = 3
	p.IntLiterals[18001] = 2
	p.FloatLiterals[19000] = 2.0
	p.FloatLiterals[19001] = 2.9

	out, err := runProgram(t, p, "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "5.0\n5\n2\n3.0\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRunJumps(t *testing.T) {
	// Prints 1 then skips the print of 2.
	p := program(
		q(bytecode.OpGoToFalse, 21000, none, 3),
		q(bytecode.OpPrint, 18000, none, none),
		q(bytecode.OpGoTo, none, none, 4),
		q(bytecode.OpPrint, 18001, none, none),
		q(bytecode.OpGoToTrue, 21000, none, 6),
		q(bytecode.OpPrint, 18001, none, none),
	)
	p.IntLiterals[18000] = 1
	p.IntLiterals[18001] = 2
	p.BoolLiterals[21000] = true

	out, err := runProgram(t, p, "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestRunJumpNeedsBool(t *testing.T) {
	p := program(q(bytecode.OpGoToFalse, 18000, none, 1))
	p.IntLiterals[18000] = 0

	_, err := runProgram(t, p, "", Options{})
	if !errors.Is(err, ErrType) {
		t.Fatalf("error = %v, want %v", err, ErrType)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.IP != 0 || re.Op != bytecode.OpGoToFalse {
		t.Errorf("error location = %+v, want instruction 0 goToFalse", re)
	}
}

func TestRunEmptyListIdentity(t *testing.T) {
	p := program(
		q(bytecode.OpAssign, 23000, none, 5000),
		q(bytecode.OpAppend, 5000, 23000, 17000),
		q(bytecode.OpEqual, 17000, 23000, 15000),
		q(bytecode.OpPrint, 15000, none, none),
		q(bytecode.OpPrint, 17000, none, none),
	)
	p.ListLiterals[23000] = bytecode.EmptyList()

	m, err := New(p, Options{Out: NewSimpleOutHandler(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, _ := m.Memory().Get(17000)
	if l := v.(List); l.Cell != bytecode.EmptyListCell {
		t.Errorf("[] ++ [] = cell %d, want %d", l.Cell, bytecode.EmptyListCell)
	}
	if m.Memory().HeapSize() != 1 {
		t.Errorf("HeapSize = %d, want 1", m.Memory().HeapSize())
	}
}

func TestRunConsAndAppend(t *testing.T) {
	// xs = 1 : 2 : [], ys = xs ++ xs
	p := program(
		q(bytecode.OpCons, 18001, 23000, 17000),
		q(bytecode.OpCons, 18000, 17000, 17001),
		q(bytecode.OpAssign, 17001, none, 5000),
		q(bytecode.OpAppend, 5000, 5000, 5001),
		q(bytecode.OpPrint, 5001, none, none),
		q(bytecode.OpPrint, 5000, none, none),
		q(bytecode.OpNegative, 5001, none, 12000),
		q(bytecode.OpPrint, 12000, none, none),
	)
	p.IntLiterals[18000] = 1
	p.IntLiterals[18001] = 2
	p.ListLiterals[23000] = bytecode.EmptyList()

	out, err := runProgram(t, p, "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "[1, 2, 1, 2]\n[1, 2]\n1\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRunCall(t *testing.T) {
	// double(x) = x + x, print(double(21))
	p := program(
		q(bytecode.OpGoTo, none, none, 3),
		q(bytecode.OpAdd, 6000, 6000, 12000),
		q(bytecode.OpReturn, 12000, none, none),
		q(bytecode.OpAlloc, 22000, none, none),
		q(bytecode.OpArg, 18000, none, 0),
		q(bytecode.OpCall, 22000, none, none),
		q(bytecode.OpReceiveRes, none, none, 12000),
		q(bytecode.OpPrint, 12000, none, none),
	)
	p.IntLiterals[18000] = 21
	p.FuncLiterals[22000] = bytecode.FuncValue{
		Entry:          1,
		ParamCount:     1,
		ParamAddresses: []int{6000},
		TempCounts:     bytecode.BandCounts{1},
		ConstCounts:    bytecode.BandCounts{1},
	}

	out, err := runProgram(t, p, "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "42\n" {
		t.Errorf("output = %q, want %q", out, "42\n")
	}
}

func TestRunCallArity(t *testing.T) {
	p := program(
		q(bytecode.OpAlloc, 22000, none, none),
		q(bytecode.OpCall, 22000, none, none),
	)
	p.FuncLiterals[22000] = bytecode.FuncValue{Entry: 0, ParamCount: 1, ParamAddresses: []int{6000}}

	if _, err := runProgram(t, p, "", Options{}); !errors.Is(err, ErrInvalidProgram) {
		t.Errorf("error = %v, want %v", err, ErrInvalidProgram)
	}
}

func TestRunImportConCapturesByValue(t *testing.T) {
	// Two closures over the same literal capture 1 and 2. Each keeps its
	// own value.
	p := program(
		q(bytecode.OpGoTo, none, none, 2),
		q(bytecode.OpReturn, 6000, none, none),
		q(bytecode.OpImportCon, 22000, 18000, 6000),
		q(bytecode.OpAssign, 22000, none, 4000),
		q(bytecode.OpImportCon, 22000, 18001, 6000),
		q(bytecode.OpAssign, 22000, none, 4001),
		q(bytecode.OpAlloc, 4000, none, none),
		q(bytecode.OpCall, 4000, none, none),
		q(bytecode.OpReceiveRes, none, none, 12000),
		q(bytecode.OpPrint, 12000, none, none),
		q(bytecode.OpAlloc, 4001, none, none),
		q(bytecode.OpCall, 4001, none, none),
		q(bytecode.OpReceiveRes, none, none, 12000),
		q(bytecode.OpPrint, 12000, none, none),
	)
	p.IntLiterals[18000] = 1
	p.IntLiterals[18001] = 2
	p.FuncLiterals[22000] = bytecode.FuncValue{Entry: 1, ConstCounts: bytecode.BandCounts{1}}

	out, err := runProgram(t, p, "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "1\n2\n" {
		t.Errorf("output = %q, want %q", out, "1\n2\n")
	}
}

func TestRunRead(t *testing.T) {
	p := program(
		q(bytecode.OpRead, none, none, 6000),
		q(bytecode.OpRead, none, none, 7000),
		q(bytecode.OpRead, none, none, 8000),
		q(bytecode.OpRead, none, none, 9000),
		q(bytecode.OpPrint, 6000, none, none),
		q(bytecode.OpPrint, 7000, none, none),
		q(bytecode.OpPrint, 8000, none, none),
		q(bytecode.OpPrint, 9000, none, none),
	)
	out, err := runProgram(t, p, " 12 \n3\n \nfalse\n", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "12\n3.0\n \nfalse\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRunReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		addr  int
		input string
	}{
		{"not an int", 6000, "x\n"},
		{"float for int", 6000, "1.5\n"},
		{"not a float", 7000, "one\n"},
		{"two chars", 8000, "ab\n"},
		{"no char", 8000, "\n"},
		{"not a bool", 9000, "yes\n"},
		{"eof", 6000, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := program(q(bytecode.OpRead, none, none, tc.addr))
			if _, err := runProgram(t, p, tc.input, Options{}); !errors.Is(err, ErrRead) {
				t.Errorf("error = %v, want %v", err, ErrRead)
			}
		})
	}
}

func TestNewRejectsInvalidProgram(t *testing.T) {
	p := program(q(bytecode.OpGoTo, none, none, 99))
	if _, err := New(p, Options{}); !errors.Is(err, ErrInvalidProgram) {
		t.Errorf("New error = %v, want %v", err, ErrInvalidProgram)
	}
	if _, err := New(nil, Options{}); !errors.Is(err, ErrInvalidProgram) {
		t.Errorf("New(nil) error = %v, want %v", err, ErrInvalidProgram)
	}
}

func TestRunContextCancel(t *testing.T) {
	p := program(q(bytecode.OpGoTo, none, none, 0))
	m, err := New(p, Options{Out: NewSimpleOutHandler(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.RunContext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want %v", err, context.Canceled)
	}
}

// ---------------------------------------------------------------------------
// Compiled programs
// ---------------------------------------------------------------------------

func TestRunSource(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{
			name: "arithmetic",
			src:  "let x: int = 3 + 4 * 2\nmain = do print(x)",
			want: "11\n",
		},
		{
			name: "widening",
			src:  "let f: float = 5\nmain = do\n  print(f)\n  print(7 / 2)\n  print(7 / 2.0)",
			want: "5.0\n3\n3.5\n",
		},
		{
			name: "recursion",
			src: `let fact(int): int = {
  for 0 = 1
  for n = n * fact(n - 1)
}
main = do print(fact(5))`,
			want: "120\n",
		},
		{
			name: "list patterns",
			src: `let len([char]): int = {
  for [] = 0
  for _:rest = 1 + len(rest)
}
main = do print(len(['a', 'b', 'c']))`,
			want: "3\n",
		},
		{
			name: "char patterns",
			src: `let vowel(char): bool = {
  for 'a' = true
  for 'e' = true
  for _ = false
}
main = do
  print(vowel('e'))
  print(vowel('z'))`,
			want: "true\nfalse\n",
		},
		{
			name: "if expression",
			src:  "let abs: (int): int = lambda(x: int): int { if x < 0 then -x else x }\nmain = do\n  print(abs(-3))\n  print(abs(4))",
			want: "3\n4\n",
		},
		{
			name: "lists",
			src: `let xs: [int] = [1, 2, 3]
main = do
  let ys: [int] = xs ++ [4]
  print(xs)
  print(ys)
  print(-ys)
  print(+xs)
  print(xs == [1, 2, 3])
  print([] ++ xs)
  print(0 : xs)`,
			want: "[1, 2, 3]\n[1, 2, 3, 4]\n1\n[2, 3]\ntrue\n[1, 2, 3]\n[0, 1, 2, 3]\n",
		},
		{
			name: "nested lists",
			src:  "let xs: [[char]] = [['a'], [], ['b', 'c']]\nmain = do print(xs)",
			want: "[[a], [], [b, c]]\n",
		},
		{
			name: "closure in main",
			src:  "main = do\n  let n: int = 3\n  let f: (): int = lambda(): int { n * 2 }\n  print(f())",
			want: "6\n",
		},
		{
			name: "curried closures keep their captures",
			src: `let adder: (int): (int): int = lambda(a: int): (int): int { lambda(b: int): int { a + b } }
main = do
  let add2: (int): int = adder(2)
  let add5: (int): int = adder(5)
  print(add2(1))
  print(add5(1))
  print(add2(10))`,
			want: "3\n6\n12\n",
		},
		{
			name: "higher order",
			src: `let apply: ((int): int, int): int = lambda(f: (int): int, x: int): int { f(x) }
let inc: (int): int = lambda(x: int): int { x + 1 }
main = do print(apply(inc, 2))`,
			want: "3\n",
		},
		{
			name: "nested calls",
			src:  "let add: (int, int): int = lambda(a: int, b: int): int { a + b }\nmain = do print(add(add(1, 2), add(3, add(4, 5))))",
			want: "15\n",
		},
		{
			name:  "read",
			src:   "main = do\n  let c: char = read()\n  let ok: bool = read()\n  let f: float = read()\n  print(c)\n  print(!ok)\n  print(f * 2)",
			input: "x\ntrue\n2\n",
			want:  "x\nfalse\n4.0\n",
		},
		{
			name: "logic",
			src:  "main = do print(1 + 2 * 3 == 7 & !false)",
			want: "true\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runSource(t, tc.src, tc.input, Options{})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if out != tc.want {
				t.Errorf("output = %q, want %q", out, tc.want)
			}
		})
	}
}

func TestRunSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want error
	}{
		{"division by zero", "main = do print(1 / 0)", Options{}, ErrDivisionByZero},
		{"head of empty", "let xs: [int] = []\nmain = do print(-xs)", Options{}, ErrEmptyList},
		{"tail of empty", "let xs: [int] = []\nmain = do print(+xs)", Options{}, ErrEmptyList},
		{"no match", "let f(int): int = {\n  for 0 = 1\n}\nmain = do print(f(2))", Options{}, ErrNoMatch},
		{"step limit", "let loop(int): int = {\n  for n = loop(n)\n}\nmain = do print(loop(1))", Options{MaxSteps: 1000}, ErrStepLimit},
		{"stack overflow", "let loop(int): int = {\n  for n = loop(n)\n}\nmain = do print(loop(1))", Options{MaxDepth: 50}, ErrStackOverflow},
		{"comparing functions", "let f: (): int = lambda(): int { 1 }\nlet fs: [(): int] = [f]\nmain = do print(fs == fs ++ [])", Options{}, ErrType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runSource(t, tc.src, "", tc.opts)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRunFloatDivisionByZero(t *testing.T) {
	out, err := runSource(t, "main = do print(1.0 / 0)", "", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "+Inf\n" {
		t.Errorf("output = %q, want %q", out, "+Inf\n")
	}
}

func TestRunStepsCounted(t *testing.T) {
	p, err := compiler.Compile("let x: int = 3 + 4 * 2\nmain = do print(x)")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m, err := New(p, Options{Out: NewSimpleOutHandler(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// multiply, add, assign, print, end
	if m.Steps() != 5 {
		t.Errorf("Steps = %d, want 5", m.Steps())
	}
}
