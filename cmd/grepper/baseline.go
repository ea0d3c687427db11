package grepper

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/report"
)

var (
	baselineFlags searchOpts
	baselineFile  string
)

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the accepted-matches baseline",
	}

	update := &cobra.Command{
		Use:   "update <pattern> [root]",
		Short: "Record the current matches as accepted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			root := "."
			if len(args) > 1 {
				root = args[1]
			}
			cfg, lc, err := baselineFlags.engineConfig(root, engine.ModeText)
			if err != nil {
				return err
			}
			cfg.NameGlob = baselineFlags.name
			cfg.Content = args[0]

			matches, _, err := collectMatches(cfg, lc)
			if err != nil {
				return err
			}
			accepted := contentOnly(matches)
			if err := report.SaveBaseline(baselineFile, accepted); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Baseline updated: %d matches recorded in %s\n", len(accepted), baselineFile)
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
	addGateFlags(update, &baselineFlags)
	update.Flags().StringVar(&baselineFlags.name, "name", "", "only scan files whose name matches this glob")
	update.Flags().StringVar(&baselineFile, "baseline", defaultBaselineFile, "baseline file to write")
}
