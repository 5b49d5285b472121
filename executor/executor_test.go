package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/caffeineduck/pagekit/hostfunc"
)

func newTestExecutor(t *testing.T, registry *hostfunc.Registry, opts ...ExecutorOption) *Executor {
	t.Helper()
	exec, err := New(registry, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestRunOutput(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, "print hello\nwarn careful")
	require.NoError(t, result.Error)
	assert.Equal(t, "hello\ncareful\n", result.Output)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRunFailure(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, "fail broken")
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "execution failed")
	assert.Contains(t, result.Output, "broken")
}

func TestRunTimeout(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, "spin", WithTimeout(100*time.Millisecond))
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timeout")
}

func TestRunCustomHostFunction(t *testing.T) {
	lang := newMockLanguage(t)
	registry := hostfunc.NewRegistry()
	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
		return "Hello, " + args["name"].(string) + "!", nil
	})
	exec := newTestExecutor(t, registry)

	result := exec.Run(context.Background(), lang, `call greet {"name":"page"}`)
	require.NoError(t, result.Error)
	assert.Equal(t, "\"Hello, page!\"\n", result.Output)
}

func TestRunHostFunctionError(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, "call missing")
	require.Error(t, result.Error)
	assert.Contains(t, result.Output, "unknown function: missing")
}

func TestRunPage(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)
	page := hostfunc.NewPage()

	script := strings.Join([]string{
		`call table_new`,
		`call table_title {"table":"table-1","column":0,"title":"Country"}`,
		`call table_set {"table":"table-1","column":0,"row":0,"value":"Angola"}`,
		`call table_get {"table":"table-1","column":0,"row":0}`,
		`call canvas_new`,
		`call canvas_fill_rects {"canvas":"canvas-2","batch":"[0,0,4,4,\"red\"]"}`,
	}, "\n")

	result := exec.Run(context.Background(), lang, script, WithPage(page))
	require.NoError(t, result.Error, result.Output)
	assert.Contains(t, result.Output, `"Angola"`)

	snap := page.Snapshot()
	assert.Equal(t, [][]string{{"Angola"}}, snap.Tables["table-1"].Rows)
	assert.Equal(t, []string{"Country"}, snap.Tables["table-1"].Titles)
	require.Len(t, snap.Canvases["canvas-2"], 3)
}

func TestRunFreshPageByDefault(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	for i := 0; i < 2; i++ {
		result := exec.Run(context.Background(), lang, "call table_new")
		require.NoError(t, result.Error)
		assert.Equal(t, "\"table-1\"\n", result.Output)
	}
}

func TestRunStoragePersists(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)
	storage := hostfunc.NewStorage(hostfunc.DefaultStorageConfig())

	result := exec.Run(context.Background(), lang, `call storage_set {"key":"visits","value":3}`, WithStorage(storage))
	require.NoError(t, result.Error)

	result = exec.Run(context.Background(), lang, `call storage_get {"key":"visits"}`, WithStorage(storage))
	require.NoError(t, result.Error)
	assert.Equal(t, "\"3\"\n", result.Output)
}

func TestRunStorageLimits(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, `call storage_set {"key":"too-long-key","value":1}`, WithStorageMaxKeySize(4))
	require.Error(t, result.Error)
	assert.Contains(t, result.Output, "key too large")
}

func TestRunTableLimits(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	script := strings.Join([]string{
		`call table_new`,
		`call table_set {"table":"table-1","column":0,"row":1000000000000000,"value":"x"}`,
	}, "\n")
	result := exec.Run(context.Background(), lang, script, WithPageMaxRows(100), WithTimeout(5*time.Second))
	require.Error(t, result.Error)
	assert.Contains(t, result.Output, "table too large")
}

func TestRunHTTPDisabledByDefault(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, `call http_get {"url":"https://example.com"}`)
	require.Error(t, result.Error)
	assert.Contains(t, result.Output, "http not enabled")
}

func TestRunGetTime(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), lang, "call get_time")
	require.NoError(t, result.Error)
	assert.Regexp(t, `^\d+\n$`, result.Output)
}

func TestExecutorCachesCompiledModule(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)

	exec.Run(context.Background(), lang, "print warm")
	assert.Len(t, exec.compiled, 1)
	exec.Run(context.Background(), lang, "print again")
	assert.Len(t, exec.compiled, 1)
}

func TestExecutorPrecompileAndDiskCache(t *testing.T) {
	lang := newMockLanguage(t)
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	exec := newTestExecutor(t, nil, WithPrecompile(lang), WithDiskCache(t.TempDir()))
	assert.Contains(t, exec.compiled, "mock")
	assert.Equal(t, 1, logs.FilterMessage("compiled interpreter").Len())
}

type brokenLanguage struct{ mockLanguage }

func (brokenLanguage) Name() string { return "broken" }

func (brokenLanguage) Module() ([]byte, error) { return nil, errors.New("no such file") }

func TestRunModuleUnavailable(t *testing.T) {
	exec := newTestExecutor(t, nil)

	result := exec.Run(context.Background(), brokenLanguage{}, "print x")
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "load broken")
}

func TestRunAfterClose(t *testing.T) {
	exec, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, exec.Close())
	require.NoError(t, exec.Close())

	result := exec.Run(context.Background(), brokenLanguage{}, "")
	assert.ErrorIs(t, result.Error, ErrClosed)
}

func TestConcurrentRuns(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t, nil)
	page := hostfunc.NewPage()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- exec.Run(context.Background(), lang, "call table_new", WithPage(page)).Error
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, page.TableIDs(), 10)
}
