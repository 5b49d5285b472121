package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/executor"
	"github.com/caffeineduck/pagekit/hostfunc"
	"github.com/caffeineduck/pagekit/serial"
)

var runCmd = &cobra.Command{
	Use:   "run [entry]",
	Short: "Run a page script and render its tables",
	Long: `Run the entry script of a page on the backend selected by the page URL.

The backend comes from --runtime, or from the token in --url:
  pagekit run --url 'page.html#py'
  pagekit run --url 'page.html?runtime=py' --mode query
  pagekit run -c 'Table().set(0, 0, "hi")' --runtime mpy

Without an entry argument the backend's entry script is used. Tables are
printed after the run; --xlsx exports them and --json prints the page state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("code", "c", "", "Code to execute instead of the entry script")
	addPageFlags(runCmd, "hash")
	runCmd.Flags().String("xlsx", "", "Export tables to this workbook path")
	runCmd.Flags().Bool("json", false, "Print the page state as JSON")
	runCmd.Flags().Bool("preview", false, "Preview canvases in the terminal")
	rootCmd.AddCommand(runCmd)
}

func addPageFlags(cmd *cobra.Command, mode string) {
	cmd.Flags().String("url", "page.html", "Page URL carrying the runtime token")
	cmd.Flags().String("mode", mode, "Where the token lives: hash or query")
	cmd.Flags().String("runtime", "", "Backend token (overrides the URL)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout")
	cmd.Flags().StringSlice("allow-host", nil, "Allow HTTP to host (repeatable)")
	cmd.Flags().String("memory", "256mb", "Memory limit: 16mb, 64mb, 256mb, 1gb")

	cmd.Flags().Int("http-max-url", 8192, "Max HTTP URL length")
	cmd.Flags().Int64("http-max-body", 1024*1024, "Max HTTP response body size")
	cmd.Flags().Int("storage-max-entries", 1000, "Max local storage entries")
	cmd.Flags().Int("table-max-rows", hostfunc.DefaultMaxRows, "Max rows per table")
	cmd.Flags().Int("table-max-columns", hostfunc.DefaultMaxColumns, "Max columns per table")
}

func buildRunOpts(cmd *cobra.Command) []executor.Option {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	allowedHosts, _ := cmd.Flags().GetStringSlice("allow-host")
	httpMaxURL, _ := cmd.Flags().GetInt("http-max-url")
	httpMaxBody, _ := cmd.Flags().GetInt64("http-max-body")
	maxEntries, _ := cmd.Flags().GetInt("storage-max-entries")

	maxRows, _ := cmd.Flags().GetInt("table-max-rows")
	maxColumns, _ := cmd.Flags().GetInt("table-max-columns")

	opts := []executor.Option{
		executor.WithTimeout(timeout),
		executor.WithStorageMaxEntries(maxEntries),
		executor.WithPageMaxRows(maxRows),
		executor.WithPageMaxColumns(maxColumns),
	}
	if len(allowedHosts) > 0 {
		opts = append(opts,
			executor.WithAllowedHosts(allowedHosts),
			executor.WithHTTPMaxURLLength(httpMaxURL),
			executor.WithHTTPMaxBodySize(httpMaxBody),
		)
	}
	return opts
}

// pageOptions returns the table limits for pages the command creates itself.
func pageOptions(cmd *cobra.Command) []hostfunc.PageOption {
	maxRows, _ := cmd.Flags().GetInt("table-max-rows")
	maxColumns, _ := cmd.Flags().GetInt("table-max-columns")
	return []hostfunc.PageOption{hostfunc.WithMaxRows(maxRows), hostfunc.WithMaxColumns(maxColumns)}
}

// pageSelection loads the manifest and resolves the backend for the page
// flags of cmd.
func pageSelection(cmd *cobra.Command) (*bootstrap.Selection, error) {
	m, err := loadManifest(cmd)
	if err != nil {
		return nil, err
	}
	pageURL, _ := cmd.Flags().GetString("url")
	mode, _ := cmd.Flags().GetString("mode")
	runtime, _ := cmd.Flags().GetString("runtime")
	return selectBackend(m, runtime, pageURL, mode)
}

func readSource(cmd *cobra.Command, args []string, b bootstrap.Backend) (string, error) {
	if code, _ := cmd.Flags().GetString("code"); code != "" {
		return code, nil
	}
	entry := b.Entry
	if len(args) > 0 {
		entry = args[0]
	}
	if entry == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(entry)
	if err != nil {
		return "", fmt.Errorf("read entry: %w", err)
	}
	return string(data), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	sel, err := pageSelection(cmd)
	if err != nil {
		return err
	}
	source, err := readSource(cmd, args, sel.Backend)
	if err != nil {
		return err
	}
	lang, err := languageFor(sel.Backend)
	if err != nil {
		return err
	}

	memory, _ := cmd.Flags().GetString("memory")
	exec, err := newExecutor(cmd, memory)
	if err != nil {
		return err
	}
	defer exec.Close()

	clock := bootstrap.NewClock()
	page := hostfunc.NewPageWithClock(clock, pageOptions(cmd)...)
	logger().Info("running page",
		zap.String("runtime", sel.Backend.Token),
		zap.String("url", sel.URL()))

	opts := append(buildRunOpts(cmd), executor.WithPage(page))
	result := exec.Run(context.Background(), lang, source, opts...)
	clock.Mark(logger(), "run")

	out := cmd.OutOrStdout()
	fmt.Fprint(out, result.Output)
	if result.Error != nil {
		return result.Error
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		fmt.Fprintln(out, serial.ToText(page.Snapshot()))
	} else {
		renderTables(out, page)
	}

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		written, err := exportTables(page, path)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", p)
		}
	}

	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		return previewCanvases(page)
	}
	return nil
}

func renderTables(w io.Writer, page *hostfunc.Page) {
	for _, id := range page.TableIDs() {
		g, _ := page.Table(id)
		if rendered := g.Render(); rendered != "" {
			fmt.Fprintf(w, "%s\n%s\n", id, rendered)
		}
	}
}

// exportTables writes one workbook per table. A single table goes to path
// itself; several get their handle appended to the file name.
func exportTables(page *hostfunc.Page, path string) ([]string, error) {
	ids := page.TableIDs()
	var written []string
	for _, id := range ids {
		target := path
		if len(ids) > 1 {
			ext := filepath.Ext(path)
			target = strings.TrimSuffix(path, ext) + "-" + id + ext
		}
		g, _ := page.Table(id)
		if err := writeWorkbook(target, id, g.WriteXLSX); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func writeWorkbook(path, sheet string, write func(io.Writer, string) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := write(f, sheet); err != nil {
		f.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	return f.Close()
}
