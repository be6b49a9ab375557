// covm runs a compiled co program.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/colang/co/compiler"
	"github.com/colang/co/manifest"
	"github.com/colang/co/pkg/bytecode"
	"github.com/colang/co/vm"
)

// traceVerbosity is the commonlog verbosity at which debug messages, and
// therefore traced instructions, are written.
const traceVerbosity = 2

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides co.toml)")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	maxSteps := flag.Int("max-steps", -1, "Instruction budget, 0 for unlimited (overrides co.toml)")
	maxDepth := flag.Int("max-depth", -1, "Call depth limit (overrides co.toml)")
	configDir := flag.String("config", ".", "Directory to search for co.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: covm [options] [program]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a program produced by coc. A .co source file is compiled first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  covm fact.coq                  # Run a compiled program\n")
		fmt.Fprintf(os.Stderr, "  covm fact.co                   # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  covm -trace -max-steps 100 fact.coq\n")
		fmt.Fprintf(os.Stderr, "  covm                           # Run project.output from co.toml\n")
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
	if *trace || m.VM.Trace {
		*trace = true
		*verbosity = max(*verbosity, traceVerbosity)
	}
	commonlog.Configure(*verbosity, nil)

	var path string
	switch args := flag.Args(); len(args) {
	case 0:
		path = m.OutputPath()
	case 1:
		path = args[0]
	default:
		flag.Usage()
		os.Exit(2)
	}

	prog, err := load(path)
	if err != nil {
		fatal(err)
	}

	opts := vm.Options{
		MaxSteps: m.VM.MaxSteps,
		MaxDepth: m.VM.MaxDepth,
		Trace:    *trace,
	}
	if *maxSteps >= 0 {
		opts.MaxSteps = *maxSteps
	}
	if *maxDepth >= 0 {
		opts.MaxDepth = *maxDepth
	}

	machine, err := vm.New(prog, opts)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := machine.RunContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		os.Exit(1)
	}
}

func load(path string) (*bytecode.Program, error) {
	if filepath.Ext(path) != ".co" {
		return bytecode.ReadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, compiler.FormatError(err, string(data)))
	}
	return prog, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
