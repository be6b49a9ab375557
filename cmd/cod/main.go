// cod serves the co toolchain: an HTTP Connect service by default, or a
// language server on stdio.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/colang/co/manifest"
	"github.com/colang/co/server"
)

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides co.toml)")
	addr := flag.String("addr", "", "Listen address (overrides co.toml, default "+manifest.DefaultServerAddr+")")
	lsp := flag.Bool("lsp", false, "Run the language server on stdio instead of the HTTP service")
	maxSteps := flag.Int("max-steps", -1, "Instruction budget per run, 0 for unlimited (overrides co.toml)")
	history := flag.String("history", "", "SQLite database recording every run (overrides co.toml)")
	configDir := flag.String("config", ".", "Directory to search for co.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cod [options]\n\n")
		fmt.Fprintf(os.Stderr, "Serves the co toolchain over Connect (HTTP/JSON) or as a language server.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cod                          # Serve on :4567\n")
		fmt.Fprintf(os.Stderr, "  cod -addr :8080 -history runs.db\n")
		fmt.Fprintf(os.Stderr, "  cod -lsp                     # Language server for editors\n")
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

	if *lsp {
		if err := server.NewLSP().Run(); err != nil {
			fatal(err)
		}
		return
	}

	if *addr == "" {
		*addr = m.Server.Addr
	}
	if *maxSteps < 0 {
		*maxSteps = m.Server.MaxSteps
	}
	if *history == "" {
		*history = m.HistoryPath()
	}

	opts := []server.Option{server.WithMaxSteps(*maxSteps)}
	if *history != "" {
		opts = append(opts, server.WithHistory(*history))
	}
	srv, err := server.New(opts...)
	if err != nil {
		fatal(err)
	}
	defer srv.Stop()
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		srv.Stop()
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
