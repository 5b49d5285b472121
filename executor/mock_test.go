package executor

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	mockOnce sync.Once
	mockWasm []byte
	mockErr  error
)

// buildMock compiles testdata/mock.go for wasip1 once per test binary.
func buildMock() ([]byte, error) {
	mockOnce.Do(func() {
		dir, err := os.MkdirTemp("", "pagekit-mock")
		if err != nil {
			mockErr = err
			return
		}
		defer os.RemoveAll(dir)

		out := filepath.Join(dir, "mock.wasm")
		cmd := exec.Command("go", "build", "-o", out, "./testdata/mock.go")
		cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
		if msg, err := cmd.CombinedOutput(); err != nil {
			mockErr = &buildError{err: err, output: string(msg)}
			return
		}
		mockWasm, mockErr = os.ReadFile(out)
	})
	return mockWasm, mockErr
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string { return e.err.Error() + ": " + e.output }

// mockLanguage implements Language for testing executor logic
// without the overhead of real Python/JavaScript runtimes.
type mockLanguage struct{}

func (mockLanguage) Name() string { return "mock" }

func (mockLanguage) Module() ([]byte, error) { return buildMock() }

func (mockLanguage) WrapCode(code string) string { return code }

func (mockLanguage) Args(wrappedCode string) []string {
	return []string{"mock", wrappedCode}
}

func (mockLanguage) SessionInit() string { return "" }

// newMockLanguage skips the test when the mock guest cannot be built.
func newMockLanguage(t *testing.T) *mockLanguage {
	t.Helper()
	if _, err := buildMock(); err != nil {
		t.Skipf("mock guest unavailable: %v", err)
	}
	return &mockLanguage{}
}
