// Package manifest handles co.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "co.toml"

// Defaults applied by Load and Default.
const (
	DefaultEntry          = "main.co"
	DefaultServerAddr     = ":4567"
	DefaultServerMaxSteps = 1000000
)

// Manifest represents a co.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Compiler CompilerConfig `toml:"compiler"`
	VM       VMConfig       `toml:"vm"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`

	// Dir is the directory containing the co.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata and file locations, relative to Dir.
type Project struct {
	Name   string `toml:"name"`
	Entry  string `toml:"entry"`
	Output string `toml:"output"`
}

// CompilerConfig configures coc.
type CompilerConfig struct {
	Disassemble bool `toml:"disassemble"`
}

// VMConfig configures covm. Zero limits mean the VM defaults.
type VMConfig struct {
	Trace    bool `toml:"trace"`
	MaxSteps int  `toml:"max-steps"`
	MaxDepth int  `toml:"max-depth"`
}

// LogConfig sets the commonlog verbosity shared by all tools.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// ServerConfig configures cod. An empty History disables the run history.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	MaxSteps int    `toml:"max-steps"`
	History  string `toml:"history"`
}

// Default returns the configuration used when no co.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a co.toml file from the given directory. Keys that do not
// belong to any section are reported as errors.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a co.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	switch {
	case m.VM.MaxSteps < 0:
		return fmt.Errorf("vm.max-steps must not be negative")
	case m.VM.MaxDepth < 0:
		return fmt.Errorf("vm.max-depth must not be negative")
	case m.Server.MaxSteps < 0:
		return fmt.Errorf("server.max-steps must not be negative")
	case m.Log.Verbosity < 0:
		return fmt.Errorf("log.verbosity must not be negative")
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Entry == "" {
		m.Project.Entry = DefaultEntry
	}
	if m.Project.Output == "" {
		m.Project.Output = strings.TrimSuffix(m.Project.Entry, filepath.Ext(m.Project.Entry)) + ".coq"
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultServerAddr
	}
	if m.Server.MaxSteps == 0 {
		m.Server.MaxSteps = DefaultServerMaxSteps
	}
}

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Project.Entry)
}

// OutputPath returns the absolute path of the compiled program.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Project.Output)
}

// HistoryPath returns the path of the run history database, or "" when
// the history is disabled.
func (m *Manifest) HistoryPath() string {
	if m.Server.History == "" || m.Server.History == ":memory:" {
		return m.Server.History
	}
	return m.resolve(m.Server.History)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
