package grepper

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/pattern"
	"github.com/atifafzal786/grepper/internal/report"
	"github.com/atifafzal786/grepper/internal/types"
)

var (
	tpRegex bool
	tpCase  bool
	tpWord  bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "test-pattern <pattern>",
		Short: "Run a pattern against text from stdin",
		Long:  "Compile a pattern exactly the way a search would and print the stdin lines it matches with their spans highlighted. Handy for checking a regex before pointing it at a large tree.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := pattern.Compile(args[0], tpRegex, tpCase, tpWord)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("empty pattern")
			}
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			var matches []types.Match
			for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
				if start, end, ok := p.Find(line); ok {
					matches = append(matches, types.ContentMatch("stdin", i+1, line, start, end))
				}
			}
			report.PrintText(os.Stdout, matches, report.PrintOptions{NoColor: flagNoColor})
			return nil
		},
	}
	cmd.Flags().BoolVar(&tpRegex, "regex", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&tpCase, "case", false, "case sensitive matching")
	cmd.Flags().BoolVar(&tpWord, "word", false, "whole word matching")
	rootCmd.AddCommand(cmd)
}
