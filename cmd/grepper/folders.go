package grepper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/engine"
)

var foldersFlags searchOpts

func init() {
	cmd := &cobra.Command{
		Use:   "folders <name-pattern> [root]",
		Short: "Find folders by name",
		Long:  "Find directories whose name contains the pattern (or matches it as a regex with --regex). With --content, only directories holding a file whose contents match are listed; rows carry modification time, the content-matched mark and the direct file count.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runFolders,
	}
	rootCmd.AddCommand(cmd)

	addGateFlags(cmd, &foldersFlags)
	cmd.Flags().StringVar(&foldersFlags.content, "content", "", "keep only folders holding a file whose contents match this pattern")
	cmd.Flags().BoolVar(&foldersFlags.tui, "tui", false, "browse results interactively")
}

func runFolders(_ *cobra.Command, args []string) error {
	root := "."
	if len(args) > 1 {
		root = args[1]
	}
	cfg, lc, err := foldersFlags.engineConfig(root, engine.ModeFolders)
	if err != nil {
		return err
	}
	cfg.NamePattern = args[0]
	cfg.Content = foldersFlags.content

	if maybeNotifyUpdate() {
		return nil
	}
	if foldersFlags.tui {
		return runTUI(cfg, lc)
	}
	matches, stats, err := collectMatches(cfg, lc)
	if err != nil {
		return fmt.Errorf("folders error: %w", err)
	}
	return renderMatches(matches, stats)
}
