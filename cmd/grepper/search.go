package grepper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/engine"
)

var searchFlags searchOpts

func init() {
	cmd := &cobra.Command{
		Use:   "search <pattern> [root]",
		Short: "Search file contents for a pattern",
		Long:  "Search file contents under the root (default: current directory) for a literal or regular-expression pattern. Every file that passes the name and ignore gates is listed; matching lines follow their file in ascending line order.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSearch,
	}
	rootCmd.AddCommand(cmd)

	addGateFlags(cmd, &searchFlags)
	cmd.Flags().StringVar(&searchFlags.name, "name", "", "only scan files whose name matches this glob")
	cmd.Flags().BoolVar(&searchFlags.firstOnly, "first-only", false, "stop after the first match per file")
	cmd.Flags().BoolVar(&searchFlags.tui, "tui", false, "browse results interactively")
}

func runSearch(_ *cobra.Command, args []string) error {
	root := "."
	if len(args) > 1 {
		root = args[1]
	}
	cfg, lc, err := searchFlags.engineConfig(root, engine.ModeText)
	if err != nil {
		return err
	}
	cfg.NameGlob = searchFlags.name
	cfg.Content = args[0]

	if maybeNotifyUpdate() {
		return nil
	}
	if searchFlags.tui {
		return runTUI(cfg, lc)
	}
	matches, stats, err := collectMatches(cfg, lc)
	if err != nil {
		return fmt.Errorf("search error: %w", err)
	}
	return renderMatches(matches, stats)
}
