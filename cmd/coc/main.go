// coc compiles a co source file into a .coq program.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/colang/co/compiler"
	"github.com/colang/co/manifest"
	"github.com/colang/co/pkg/bytecode"
)

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides co.toml)")
	disasm := flag.Bool("disasm", false, "Print the disassembled program")
	configDir := flag.String("config", ".", "Directory to search for co.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: coc [options] [source [output]]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a co source file into a program for covm.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  coc fact.co               # Write fact.coq\n")
		fmt.Fprintf(os.Stderr, "  coc fact.co out/fact.coq  # Choose the output path\n")
		fmt.Fprintf(os.Stderr, "  coc -disasm fact.co       # Also print the quadruples\n")
		fmt.Fprintf(os.Stderr, "  coc                       # Build project.entry from co.toml\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fatal(err)
	}
	if m == nil {
		m = manifest.Default()
	}
	if *verbosity < 0 {
		*verbosity = m.Log.Verbosity
	}
	commonlog.Configure(*verbosity, nil)

	var src, out string
	switch args := flag.Args(); len(args) {
	case 0:
		src, out = m.EntryPath(), m.OutputPath()
	case 1:
		src = args[0]
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".coq"
	case 2:
		src, out = args[0], args[1]
	default:
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		fatal(err)
	}
	prog, err := compiler.Compile(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", src, compiler.FormatError(err, string(data)))
		os.Exit(1)
	}

	if *disasm || m.Compiler.Disassemble {
		fmt.Print(prog.DisassembleWithName(filepath.Base(src)))
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal(err)
		}
	}
	if err := bytecode.WriteFile(out, prog); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
