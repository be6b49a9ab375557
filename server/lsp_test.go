package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/colang/co/compiler"
)

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func newDocument(text string) *document {
	a, _ := compiler.Analyze(text)
	return &document{text: text, analysis: a}
}

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "print(total", pos(0, 11), "total"},
		{"at start", "tot", pos(0, 3), "tot"},
		{"empty line", "", pos(0, 0), ""},
		{"multi line", "let x: int = 1\nmain = do\n  pri", pos(2, 5), "pri"},
		{"after space", "let y: int = cou", pos(0, 16), "cou"},
		{"underscore", "my_val", pos(0, 6), "my_val"},
		{"mid word", "counter", pos(0, 4), "coun"},
		{"cursor at beginning", "abc", pos(0, 0), ""},
		{"line beyond document", "abc", pos(5, 0), ""},
		{"column beyond line", "abc", pos(0, 10), "abc"},
	}
	for _, tc := range tests {
		if got := extractPrefix(tc.text, tc.pos); got != tc.want {
			t.Errorf("%s: extractPrefix = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "print(total)", pos(0, 8), "total"},
		{"at end", "total", pos(0, 5), "total"},
		{"at space", "a  b", pos(0, 2), ""},
		{"second word", "let count", pos(0, 6), "count"},
		{"empty line", "", pos(0, 0), ""},
		{"multi line", "x\n  fact(3)", pos(1, 3), "fact"},
		{"underscore", "a my_val b", pos(0, 4), "my_val"},
		{"line beyond document", "x", pos(3, 0), ""},
	}
	for _, tc := range tests {
		if got := extractWord(tc.text, tc.pos); got != tc.want {
			t.Errorf("%s: extractWord = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should return pointer to true")
	}
	if p := boolPtr(false); p == nil || *p {
		t.Error("boolPtr(false) should return pointer to false")
	}
}

// ---------------------------------------------------------------------------
// Analysis-backed features
// ---------------------------------------------------------------------------

func TestDiagnostics(t *testing.T) {
	doc := newDocument("main = do\n  let x: int = 2.5")
	ds := diagnostics(doc)
	if len(ds) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(ds))
	}
	d := ds[0]
	if d.Range.Start != pos(1, 6) {
		t.Errorf("range start = %+v, want line 1 char 6", d.Range.Start)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", d.Severity)
	}
	if !strings.HasPrefix(d.Message, "type mismatch: ") {
		t.Errorf("message = %q", d.Message)
	}

	if ds := diagnostics(newDocument("main = do print(1)")); len(ds) != 0 {
		t.Errorf("valid document has diagnostics: %+v", ds)
	}
}

func TestResolve(t *testing.T) {
	src := "let n: int = 1\nlet sq: (int): int = lambda(n: int): int { n * n }\nmain = do print(sq(n))"
	doc := newDocument(src)

	tests := []struct {
		name       string
		pos        protocol.Position
		wantLine   int
		wantGlobal bool
	}{
		{"global declaration", pos(0, 4), 1, true},
		{"lambda parameter", pos(1, 43), 2, false},
		{"global use in main", pos(2, 19), 1, true},
		{"function use", pos(2, 16), 2, true},
	}
	for _, tc := range tests {
		sym, ok := resolve(doc, tc.pos)
		if !ok {
			t.Errorf("%s: nothing resolved", tc.name)
			continue
		}
		if sym.Pos.Line != tc.wantLine || sym.Global != tc.wantGlobal {
			t.Errorf("%s: resolved %s at line %d global %v, want line %d global %v",
				tc.name, sym.Name, sym.Pos.Line, sym.Global, tc.wantLine, tc.wantGlobal)
		}
	}

	if _, ok := resolve(doc, pos(2, 0)); ok {
		t.Errorf("resolved main, which is not a declaration")
	}
}

func TestComplete(t *testing.T) {
	doc := newDocument("let length: int = 1\nlet later: float = 2.0\nmain = do print(l")

	items := complete(doc, "l")
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	want := "lambda later length let"
	if got := strings.Join(labels, " "); got != want {
		t.Errorf("labels = %q, want %q", got, want)
	}

	for _, it := range items {
		if it.Label == "length" && (it.Detail == nil || *it.Detail != "int") {
			t.Errorf("length detail = %v, want int", it.Detail)
		}
	}
}
