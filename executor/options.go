package executor

import (
	"time"

	"github.com/caffeineduck/pagekit/hostfunc"
)

// Option configures a run or a session.
type Option func(*runConfig)

type runConfig struct {
	timeout      time.Duration
	page         *hostfunc.Page
	storage      *hostfunc.Storage
	allowedHosts []string
	env          map[string]string
	// Security limits
	storageOptions   []hostfunc.StorageOption
	pageOptions      []hostfunc.PageOption
	httpMaxURLLength int
	httpMaxBodySize  int64
	httpTimeout      time.Duration
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
		env:     make(map[string]string),
	}
}

func newRunConfig(opts []Option) runConfig {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.page == nil {
		cfg.page = hostfunc.NewPage(cfg.pageOptions...)
	}
	if cfg.storage == nil {
		cfg.storage = hostfunc.NewStorageWith(cfg.storageOptions...)
	}
	return cfg
}

func (c runConfig) httpConfig() hostfunc.HTTPConfig {
	return hostfunc.HTTPConfig{
		AllowedHosts:   c.allowedHosts,
		MaxURLLength:   c.httpMaxURLLength,
		MaxBodySize:    c.httpMaxBodySize,
		RequestTimeout: c.httpTimeout,
	}
}

// WithTimeout sets the maximum execution time. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithPage gives the script a page whose tables and canvases outlive the
// run. Without it every run draws on a fresh page.
func WithPage(p *hostfunc.Page) Option {
	return func(c *runConfig) {
		c.page = p
	}
}

// WithStorage provides a storage shared across runs.
func WithStorage(s *hostfunc.Storage) Option {
	return func(c *runConfig) {
		c.storage = s
	}
}

// WithAllowedHosts sets the list of hosts that HTTP requests can access.
func WithAllowedHosts(hosts []string) Option {
	return func(c *runConfig) {
		c.allowedHosts = hosts
	}
}

// WithEnv sets an environment variable inside the guest.
func WithEnv(key, value string) Option {
	return func(c *runConfig) {
		c.env[key] = value
	}
}

// Security limit options

// WithStorageMaxKeySize limits key size when no storage is provided.
func WithStorageMaxKeySize(size int) Option {
	return func(c *runConfig) {
		c.storageOptions = append(c.storageOptions, hostfunc.WithMaxKeySize(size))
	}
}

// WithStorageMaxValueSize limits value size when no storage is provided.
func WithStorageMaxValueSize(size int) Option {
	return func(c *runConfig) {
		c.storageOptions = append(c.storageOptions, hostfunc.WithMaxValueSize(size))
	}
}

// WithStorageMaxEntries limits the entry count when no storage is provided.
func WithStorageMaxEntries(n int) Option {
	return func(c *runConfig) {
		c.storageOptions = append(c.storageOptions, hostfunc.WithMaxEntries(n))
	}
}

// WithPageMaxRows limits table rows when no page is provided.
func WithPageMaxRows(n int) Option {
	return func(c *runConfig) {
		c.pageOptions = append(c.pageOptions, hostfunc.WithMaxRows(n))
	}
}

// WithPageMaxColumns limits table columns when no page is provided.
func WithPageMaxColumns(n int) Option {
	return func(c *runConfig) {
		c.pageOptions = append(c.pageOptions, hostfunc.WithMaxColumns(n))
	}
}

func WithHTTPMaxURLLength(size int) Option {
	return func(c *runConfig) {
		c.httpMaxURLLength = size
	}
}

func WithHTTPMaxBodySize(size int64) Option {
	return func(c *runConfig) {
		c.httpMaxBodySize = size
	}
}

func WithHTTPTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.httpTimeout = d
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Language
	memoryLimitPages uint32 // 64KB pages, 0 = wazero default (4GB)
}

// WithDiskCache enables a persistent compilation cache for faster CLI
// startup. Without a directory it uses XDG_CACHE_HOME/pagekit or
// ~/.cache/pagekit.
//
//	executor.New(registry, executor.WithDiskCache())
//	executor.New(registry, executor.WithDiskCache("/tmp/cache"))
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the given languages when the Executor is created.
func WithPrecompile(langs ...Language) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = langs
	}
}

// WithMemoryLimit caps guest memory in 64KB pages.
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

const (
	MemoryLimit16MB  uint32 = 256
	MemoryLimit64MB  uint32 = 1024
	MemoryLimit256MB uint32 = 4096
	MemoryLimit1GB   uint32 = 16384
)
