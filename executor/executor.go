package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/hostfunc"
)

var ErrClosed = errors.New("executor closed")

// Result holds the output and metadata from code execution.
type Result struct {
	Output   string
	Duration time.Duration
	Error    error
}

// Executor manages the wazero runtime and caches compiled interpreters.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor. Functions in registry are available to every run
// next to the page, storage and HTTP functions.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	var cfg executorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	if cfg.diskCache {
		dir := cfg.cacheDir
		if dir == "" {
			dir = DefaultCacheDir()
		}
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(dir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
		Logger().Debug("compilation cache", zap.String("dir", dir))
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
	}

	for _, lang := range cfg.precompile {
		if _, err := e.getCompiled(ctx, lang); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", lang.Name(), err)
		}
	}

	return e, nil
}

// Run executes code once on a fresh interpreter instance.
func (e *Executor) Run(ctx context.Context, lang Language, code string, opts ...Option) Result {
	start := time.Now()
	cfg := newRunConfig(opts)

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := e.getCompiled(ctx, lang)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	var stdout bytes.Buffer
	stdinReader, stdinWriter := io.Pipe()
	proto := newProtocol(ctx, e.registryFor(cfg), stdinWriter)

	moduleConfig := e.moduleConfig(cfg, lang.Args(lang.WrapCode(code))).
		WithStdout(&stdout).
		WithStderr(proto).
		WithStdin(stdinReader)

	_, err = e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	stdinWriter.Close()
	proto.Wait()

	result := Result{
		Output:   stdout.String() + proto.Stderr(),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = runError(ctx, err, cfg.timeout)
	}

	Logger().Debug("run finished",
		zap.String("lang", lang.Name()),
		zap.Duration("duration", result.Duration),
		zap.Error(result.Error))
	return result
}

// registryFor layers the per-run host functions over the executor's own.
func (e *Executor) registryFor(cfg runConfig) *hostfunc.Registry {
	registry := e.registry.Clone()
	cfg.page.Register(registry)
	cfg.storage.Register(registry)
	hostfunc.NewHTTP(cfg.httpConfig()).Register(registry)
	return registry
}

func (e *Executor) moduleConfig(cfg runConfig, args []string) wazero.ModuleConfig {
	mc := wazero.NewModuleConfig().
		WithArgs(args...).
		WithName("").
		WithSysWalltime().
		WithSysNanotime()
	for k, v := range cfg.env {
		mc = mc.WithEnv(k, v)
	}
	return mc
}

func runError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	return fmt.Errorf("execution failed: %w", err)
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, lang Language) (wazero.CompiledModule, error) {
	name := lang.Name()

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	bin, err := lang.Module()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	began := time.Now()
	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	Logger().Info("compiled interpreter",
		zap.String("lang", name),
		zap.Int("bytes", len(bin)),
		zap.Duration("took", time.Since(began)))

	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		err = errors.Join(err, e.cache.Close(ctx))
	}
	return err
}

// DefaultCacheDir is where WithDiskCache stores compiled modules when no
// directory is given.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "pagekit")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "pagekit")
	}
	return filepath.Join(os.TempDir(), "pagekit-cache")
}
