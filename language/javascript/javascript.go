// Package javascript adapts the QuickJS WASI build to the executor.
package javascript

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed stdlib.js
var stdlib string

const DefaultModule = ".pagekit/runtimes/qjs.wasm"

// JavaScript implements the executor.Language interface for QuickJS.
type JavaScript struct {
	name   string
	module string
}

// New returns a QuickJS adapter loading the interpreter from module.
// An empty path uses qjs.wasm from the default runtime directory.
func New(module string) *JavaScript {
	if module == "" {
		module = DefaultModule
	}
	return &JavaScript{name: "javascript", module: module}
}

// Named overrides the compile cache key.
func (j *JavaScript) Named(name string) *JavaScript {
	j.name = name
	return j
}

func (j *JavaScript) Name() string {
	return j.name
}

func (j *JavaScript) Module() ([]byte, error) {
	data, err := os.ReadFile(j.module)
	if err != nil {
		return nil, fmt.Errorf("quickjs module: %w", err)
	}
	return data, nil
}

// WrapCode prepends the page library to user code.
func (j *JavaScript) WrapCode(code string) string {
	return stdlib + "\n" + code
}

func (j *JavaScript) Args(wrappedCode string) []string {
	return []string{"qjs", "--std", "-e", wrappedCode}
}

func (j *JavaScript) SessionInit() string {
	return "globalThis._PAGEKIT_SESSION_MODE = true;\n"
}
