package executor

// Language is a WASI interpreter that page scripts run on.
type Language interface {
	// Name identifies the interpreter build. Compiled modules are cached by
	// name, so two builds of the same language need different names.
	Name() string

	// Module returns the interpreter's WASM binary.
	Module() ([]byte, error)

	// WrapCode prepends the page library to user code.
	WrapCode(code string) string

	// Args returns the argv the module is started with.
	Args(wrappedCode string) []string

	// SessionInit returns code that switches the page library into its
	// command loop instead of running once.
	SessionInit() string
}
