package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the program: literal
// tables first, then one numbered line per quadruple.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns the listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; co program v%d\n", p.Version))
	sb.WriteString(fmt.Sprintf("; %d instructions, %d literals\n", len(p.Instructions), p.LiteralCount()))

	if p.LiteralCount() > 0 {
		sb.WriteString("\n; Literals:\n")
		for _, addr := range sortedKeys(p.IntLiterals) {
			sb.WriteString(fmt.Sprintf(";   %-12s %d\n", FormatAddress(addr), p.IntLiterals[addr]))
		}
		for _, addr := range sortedKeys(p.FloatLiterals) {
			sb.WriteString(fmt.Sprintf(";   %-12s %g\n", FormatAddress(addr), p.FloatLiterals[addr]))
		}
		for _, addr := range sortedKeys(p.CharLiterals) {
			sb.WriteString(fmt.Sprintf(";   %-12s %q\n", FormatAddress(addr), p.CharLiterals[addr]))
		}
		for _, addr := range sortedKeys(p.BoolLiterals) {
			sb.WriteString(fmt.Sprintf(";   %-12s %t\n", FormatAddress(addr), p.BoolLiterals[addr]))
		}
		for _, addr := range sortedKeys(p.FuncLiterals) {
			fn := p.FuncLiterals[addr]
			sb.WriteString(fmt.Sprintf(";   %-12s func entry=%d params=%d frame=%d\n",
				FormatAddress(addr), fn.Entry, fn.ParamCount, fn.FrameSize()))
		}
		for _, addr := range sortedKeys(p.ListLiterals) {
			sb.WriteString(fmt.Sprintf(";   %-12s []\n", FormatAddress(addr)))
		}
	}

	sb.WriteString("\n")
	for i, q := range p.Instructions {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", i, q))
	}
	return sb.String()
}

// DisassembleToLines returns the instruction listing as separate lines,
// without the header and literal tables.
func (p *Program) DisassembleToLines() []string {
	lines := make([]string, len(p.Instructions))
	for i, q := range p.Instructions {
		lines[i] = fmt.Sprintf("%04d  %s", i, q)
	}
	return lines
}

func sortedKeys[V any](m map[int]V) []int {
	keys := keysOf(m)
	sort.Ints(keys)
	return keys
}
