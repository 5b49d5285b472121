package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/executor"
	"github.com/caffeineduck/pagekit/internal/fetch"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "Manage the interpreter modules of the manifest",
	Long: `Install and inspect the WebAssembly interpreter modules that the
manifest's backends load.

Modules are downloaded from each backend's source URL into its module path.`,
}

var runtimesInstallCmd = &cobra.Command{
	Use:   "install [tokens...]",
	Short: "Download missing modules (all backends when no token is given)",
	RunE:  runRuntimesInstall,
}

var runtimesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backends and whether their module is installed",
	Args:  cobra.NoArgs,
	RunE:  runRuntimesList,
}

var runtimesCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Compilation cache commands",
}

var runtimesCacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the compilation cache",
	Args:  cobra.NoArgs,
	RunE:  runRuntimesCacheClear,
}

func init() {
	runtimesCacheCmd.AddCommand(runtimesCacheClearCmd)
	runtimesCmd.AddCommand(runtimesInstallCmd, runtimesListCmd, runtimesCacheCmd)
	rootCmd.AddCommand(runtimesCmd)
}

func backendsFor(m bootstrap.Manifest, tokens []string) ([]bootstrap.Backend, error) {
	if len(tokens) == 0 {
		return m.Backends, nil
	}
	out := make([]bootstrap.Backend, 0, len(tokens))
	for _, token := range tokens {
		b, ok := m.Backend(token)
		if !ok {
			return nil, fmt.Errorf("runtime %q: %w", token, bootstrap.ErrUnknownRuntime)
		}
		out = append(out, b)
	}
	return out, nil
}

func runRuntimesInstall(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	backends, err := backendsFor(m, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, b := range backends {
		downloaded, err := fetch.Module(cmd.Context(), nil, logger(), b)
		if err != nil {
			return err
		}
		if downloaded {
			fmt.Fprintf(out, "Installed %s -> %s\n", b.Token, b.Module)
		} else {
			fmt.Fprintf(out, "%s already installed\n", b.Token)
		}
	}
	return nil
}

func runRuntimesList(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, b := range m.Backends {
		status := "missing"
		if fetch.Installed(b) {
			status = "installed"
		}
		marker := " "
		if b.Token == m.Default {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s %-14s %-10s %s\n", marker, b.Token, b.Label, status, b.Module)
	}
	return nil
}

func runRuntimesCacheClear(cmd *cobra.Command, args []string) error {
	cacheDir := executor.DefaultCacheDir()
	if err := os.RemoveAll(cacheDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}
