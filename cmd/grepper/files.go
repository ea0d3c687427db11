package grepper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/engine"
)

var filesFlags searchOpts

func init() {
	cmd := &cobra.Command{
		Use:   "files <name-pattern> [root]",
		Short: "Find files by name",
		Long:  "Find files whose name contains the pattern (or matches it as a regex with --regex). With --content, only files whose contents also match are listed; rows carry size, modification time and the content-matched mark.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runFiles,
	}
	rootCmd.AddCommand(cmd)

	addGateFlags(cmd, &filesFlags)
	cmd.Flags().StringVar(&filesFlags.content, "content", "", "keep only files whose contents match this pattern")
	cmd.Flags().BoolVar(&filesFlags.tui, "tui", false, "browse results interactively")
}

func runFiles(_ *cobra.Command, args []string) error {
	root := "."
	if len(args) > 1 {
		root = args[1]
	}
	cfg, lc, err := filesFlags.engineConfig(root, engine.ModeFiles)
	if err != nil {
		return err
	}
	cfg.NamePattern = args[0]
	cfg.Content = filesFlags.content

	if maybeNotifyUpdate() {
		return nil
	}
	if filesFlags.tui {
		return runTUI(cfg, lc)
	}
	matches, stats, err := collectMatches(cfg, lc)
	if err != nil {
		return fmt.Errorf("files error: %w", err)
	}
	return renderMatches(matches, stats)
}
