package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/pagekit/executor"
	"github.com/caffeineduck/pagekit/serial"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL with a persistent page",
	Long: `Start an interactive session on the selected backend. Tables and
canvases created in the session persist between inputs.

Features:
  - Command history (up/down arrows)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Commands:
  :page   print the tables of the page
  :json   print the page state as JSON

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	RunE: runRepl,
}

func init() {
	addPageFlags(replCmd, "hash")
	replCmd.Flags().String("history", "", "History file path (default: ~/.pagekit_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".pagekit_history")
	}

	sel, err := pageSelection(cmd)
	if err != nil {
		return err
	}
	lang, err := languageFor(sel.Backend)
	if err != nil {
		return err
	}

	memory, _ := cmd.Flags().GetString("memory")
	exec, err := newExecutor(cmd, memory, lang)
	if err != nil {
		return err
	}
	defer exec.Close()

	session, err := exec.NewSession(lang, buildRunOpts(cmd)...)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(os.Stderr, "pagekit %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", sel.Backend.Label)
	return replLoop(rl, session, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func replLoop(rl *readline.Instance, session *executor.Session, out, errOut io.Writer) error {
	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}
		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if quit := replCommand(session, strings.TrimSpace(line), out, errOut); quit {
			return nil
		}
	}
}

// replCommand handles one complete input and reports whether the loop should
// stop.
func replCommand(session *executor.Session, line string, out, errOut io.Writer) bool {
	switch line {
	case "exit", "quit":
		return true
	case ":page":
		renderTables(out, session.Page())
		return false
	case ":json":
		fmt.Fprintln(out, serial.ToText(session.Page().Snapshot()))
		return false
	}

	result := session.Run(context.Background(), line)
	if result.Output != "" {
		fmt.Fprint(out, result.Output)
		if !strings.HasSuffix(result.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
	if result.Error != nil {
		fmt.Fprintf(errOut, "Error: %v\n", result.Error)
	}
	return false
}
