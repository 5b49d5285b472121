package executor

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns an executor shared across a test binary. Compiled
// interpreters go to a disk cache under the system temp directory, so only
// the first test binary of a run pays for compilation.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		dir := filepath.Join(os.TempDir(), "pagekit-test-cache")
		testExecutor, testExecutorErr = New(nil, WithDiskCache(dir))
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared test executor. Call it from TestMain.
func CloseTestExecutor() {
	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
		testExecutorOnce = sync.Once{}
	}
}
