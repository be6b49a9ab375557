package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleListsEveryInstruction(t *testing.T) {
	p := sampleProgram()
	out := p.DisassembleWithName("sample")

	for _, want := range []string{
		"; === sample ===",
		"; co program v1",
		"5 instructions",
		"c.int[0]",
		"func entry=1 params=1",
		"0000  goTo",
		"0002  assign",
		"0004  end",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleToLines(t *testing.T) {
	lines := sampleProgram().DisassembleToLines()
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[3], "0003  print") {
		t.Errorf("lines[3] = %q", lines[3])
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), " 2") {
		t.Errorf("jump target not rendered as an index: %q", lines[0])
	}
}
