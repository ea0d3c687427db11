package grepper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/update"
)

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the grepper version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("grepper v" + version)
			if flagNoUpdateCheck {
				return
			}
			if latest, newer, _ := update.Check(version, false); newer && latest != "" {
				fmt.Printf("latest release: v%s (run 'grepper --self-update' to upgrade)\n", latest)
			}
		},
	}
	rootCmd.AddCommand(cmd)
}
