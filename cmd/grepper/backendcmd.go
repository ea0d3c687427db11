package grepper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/backend/ripgrep"
	"github.com/atifafzal786/grepper/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Inspect and install external search backends",
	}
	rootCmd.AddCommand(cmd)

	which := &cobra.Command{
		Use:   "which",
		Short: "Show which ripgrep binary would be used",
		RunE: func(_ *cobra.Command, _ []string) error {
			rc := loadRipgrepConfig()
			bm := ripgrep.NewBinaryManager(rc.GetBinaryPath())
			path, err := bm.Find()
			if err != nil {
				fmt.Println("ripgrep: not found (the builtin backend will be used)")
				return nil
			}
			ver, _ := bm.Version(path)
			fmt.Printf("ripgrep: %s", path)
			if ver != "" {
				fmt.Printf(" (%s)", ver)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.AddCommand(which)

	var installVersion string
	install := &cobra.Command{
		Use:   "install",
		Short: "Download a ripgrep binary into ~/.grepper/bin",
		RunE: func(_ *cobra.Command, _ []string) error {
			rc := loadRipgrepConfig()
			v := installVersion
			if v == "" {
				v = rc.GetVersion()
			}
			bm := ripgrep.NewBinaryManager(rc.GetBinaryPath())
			path, err := bm.Download(v)
			if err != nil {
				return fmt.Errorf("install ripgrep: %w", err)
			}
			fmt.Println("Installed", path)
			return nil
		},
	}
	install.Flags().StringVar(&installVersion, "version", "", "release to install (default: latest, or the version pinned in config)")
	cmd.AddCommand(install)
}

func loadRipgrepConfig() config.RipgrepConfig {
	if c, err := config.LoadLocal("."); err == nil && c.Ripgrep != nil {
		return c.GetRipgrepConfig()
	}
	if c, err := config.LoadGlobal(); err == nil && c.Ripgrep != nil {
		return c.GetRipgrepConfig()
	}
	return config.RipgrepConfig{}
}
