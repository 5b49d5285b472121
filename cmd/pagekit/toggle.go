package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <url>",
	Short: "Print the page URL selecting the next backend",
	Long: `Resolve the backend named by a page URL and print the URL that switches
to the next backend in the manifest, followed by the label of the current one.

  pagekit toggle 'page.html#mpy'              -> page.html#py
  pagekit toggle 'page.html?runtime=py' --mode query`,
	Args: cobra.ExactArgs(1),
	RunE: runToggle,
}

func init() {
	toggleCmd.Flags().String("mode", "hash", "Where the token lives: hash or query")
	rootCmd.AddCommand(toggleCmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")
	sel, err := selectBackend(m, "", args[0], mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sel.Toggle())
	fmt.Fprintf(out, "current: %s (%s)\n", sel.ToggleLabel(), sel.Backend.Token)
	fmt.Fprintf(out, "next: %s (%s)\n", sel.Next().Label, sel.Next().Token)
	return nil
}
