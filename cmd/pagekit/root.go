package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/executor"
	"github.com/caffeineduck/pagekit/language/javascript"
	"github.com/caffeineduck/pagekit/language/python"
)

const defaultManifestFile = "pagekit.yaml"

var rootCmd = &cobra.Command{
	Use:   "pagekit",
	Short: "Run page scripts on WebAssembly interpreters",
	Long: `pagekit - run page scripts on MicroPython, Python or QuickJS compiled
to WebAssembly.

A manifest (pagekit.yaml) declares the interpreter backends. The page URL
selects one of them with a hash fragment (page.html#py) or a query parameter
(page.html?runtime=py). Scripts draw into tables and canvases which pagekit
renders in the terminal, exports to Excel or serves as JSON.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("manifest", "", "Manifest file (default: ./pagekit.yaml if present, else built-in)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	executor.SetLogger(logger)
	return nil
}

func logger() *zap.Logger {
	return executor.Logger()
}

// loadManifest reads --manifest, falling back to ./pagekit.yaml and then to
// the built-in MicroPython/Python pair.
func loadManifest(cmd *cobra.Command) (bootstrap.Manifest, error) {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		if _, err := os.Stat(defaultManifestFile); err != nil {
			return bootstrap.DefaultManifest(), nil
		}
		path = defaultManifestFile
	}
	m, err := bootstrap.LoadManifest(path)
	if err != nil {
		return bootstrap.Manifest{}, err
	}
	logger().Debug("manifest loaded", zap.String("path", path), zap.Int("backends", len(m.Backends)))
	return m, nil
}

// selectBackend resolves the backend from --runtime or, without it, from the
// page URL.
func selectBackend(m bootstrap.Manifest, runtime, pageURL, modeName string) (*bootstrap.Selection, error) {
	mode, err := bootstrap.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	if runtime != "" {
		if _, ok := m.Backend(runtime); !ok {
			return nil, fmt.Errorf("runtime %q: %w", runtime, bootstrap.ErrUnknownRuntime)
		}
		pageURL = withToken(pageURL, m.Param, runtime, mode)
	}
	return m.Select(pageURL, mode)
}

func withToken(pageURL, param, token string, mode bootstrap.Mode) string {
	if param == "" {
		param = "runtime"
	}
	if mode == bootstrap.ModeQuery {
		sep := "?"
		if strings.Contains(pageURL, "?") {
			sep = "&"
		}
		return pageURL + sep + param + "=" + token
	}
	base, _, _ := strings.Cut(pageURL, "#")
	return base + "#" + token
}

func languageFor(b bootstrap.Backend) (executor.Language, error) {
	switch b.Language {
	case "python":
		return python.New(python.Options{Name: b.Token, Module: b.Module, Argv0: b.Argv0}), nil
	case "javascript":
		return javascript.New(b.Module).Named(b.Token), nil
	default:
		return nil, errors.New("unknown language: " + b.Language)
	}
}

func newExecutor(cmd *cobra.Command, memory string, precompile ...executor.Language) (*executor.Executor, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")

	var opts []executor.ExecutorOption
	if !noCache {
		opts = append(opts, executor.WithDiskCache())
	}
	if pages := parseMemoryLimit(memory); pages > 0 {
		opts = append(opts, executor.WithMemoryLimit(pages))
	}
	if len(precompile) > 0 {
		opts = append(opts, executor.WithPrecompile(precompile...))
	}
	return executor.New(nil, opts...)
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0
	}
}
