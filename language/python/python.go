// Package python adapts WASI builds of Python (CPython or MicroPython) to the
// executor.
package python

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed stdlib.py
var stdlib string

const (
	DefaultArgv0  = "python"
	DefaultModule = ".pagekit/runtimes/python.wasm"
)

type Options struct {
	// Name is the compile cache key. Defaults to Argv0.
	Name string
	// Module is the path of the interpreter's .wasm file.
	Module string
	// Argv0 is the program name passed to the interpreter.
	Argv0 string
}

// Python implements the executor.Language interface.
type Python struct {
	opts Options
}

// New returns a Python adapter. Zero options use python.wasm from the
// default runtime directory.
func New(opts Options) *Python {
	if opts.Argv0 == "" {
		opts.Argv0 = DefaultArgv0
	}
	if opts.Module == "" {
		opts.Module = DefaultModule
	}
	if opts.Name == "" {
		opts.Name = opts.Argv0
	}
	return &Python{opts: opts}
}

func (p *Python) Name() string {
	return p.opts.Name
}

// Module reads the interpreter binary from disk.
func (p *Python) Module() ([]byte, error) {
	data, err := os.ReadFile(p.opts.Module)
	if err != nil {
		return nil, fmt.Errorf("python module: %w", err)
	}
	return data, nil
}

// WrapCode prepends the page library to user code.
func (p *Python) WrapCode(code string) string {
	return stdlib + "\n" + code
}

func (p *Python) Args(wrappedCode string) []string {
	return []string{p.opts.Argv0, "-c", wrappedCode}
}

func (p *Python) SessionInit() string {
	return "_PAGEKIT_SESSION_MODE = True\n"
}
