package grepper

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagJSON          bool
	flagCSV           bool
	flagFormat        string
	flagNoColor       bool
	flagThreads       int
	flagBackend       string
	flagNoUpdateCheck bool
	flagSelfUpdate    bool

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the Grepper CLI.
var rootCmd = &cobra.Command{
	Use:           "grepper",
	Short:         "Find files, folders and text fast",
	Long:          "Grepper recursively searches a directory tree for file names, folder names or text inside files. It honors .gitignore style rules, skips hidden and binary files, and renders results as a table, plain text, JSON, CSV or an interactive browser.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the Grepper CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagCSV, "csv", false, "emit CSV")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "table", "output format: table | text")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker hint forwarded to external backends (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "search backend: auto | builtin | ripgrep")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
	rootCmd.PersistentFlags().BoolVar(&flagSelfUpdate, "self-update", false, "update grepper to the latest release")
}
