package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"hexed/internal/editor"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var offsetFlag string

var rootCmd = &cobra.Command{
	Use:   "hexed <file>",
	Short: "A terminal hex editor for files of any size",
	Long: `hexed presents a file as hex and text panes for byte-level editing.
Files are paged in on demand, so editing works the same on multi-gigabyte
files as on small ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := parseOffset(offsetFlag)
		if err != nil {
			return fmt.Errorf("invalid --offset %q: %w", offsetFlag, err)
		}

		model, err := editor.NewModel(args[0], offset)
		if err != nil {
			return err
		}

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running editor: %w", err)
		}
		return nil
	},
}

// parseOffset accepts a decimal number or a 0x-prefixed hexadecimal one.
func parseOffset(arg string) (int64, error) {
	if s, ok := strings.CutPrefix(strings.ToLower(arg), "0x"); ok {
		return strconv.ParseInt(s, 16, 64)
	}
	return strconv.ParseInt(arg, 10, 64)
}

func main() {
	rootCmd.Flags().StringVar(&offsetFlag, "offset", "0",
		"open the file with the cursor at this offset (decimal or 0x-prefixed hex)")
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
