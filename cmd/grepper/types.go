package grepper

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/filetypes"
)

func init() {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List built-in file type filters",
		Run: func(_ *cobra.Command, _ []string) {
			for _, name := range filetypes.Names() {
				globs, _ := filetypes.Lookup(name)
				fmt.Printf("%-12s %s\n", name, strings.Join(globs, ", "))
			}
		},
	}
	rootCmd.AddCommand(cmd)
}
