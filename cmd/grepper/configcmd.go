package grepper

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/atifafzal786/grepper/internal/config"
)

var (
	cfgOutput   string
	cfgInclude  string
	cfgExclude  string
	cfgTypes    string
	cfgMaxBytes int64
	cfgThreads  int
	cfgBackend  string
	cfgEditor   string
	cfgHidden   bool
	cfgNoColor  bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .grepper.yml with selected defaults",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".grepper.yml", "output file path")
	initCmd.Flags().StringVar(&cfgInclude, "include", "", "comma-separated include globs")
	initCmd.Flags().StringVar(&cfgExclude, "exclude", "", "comma-separated exclude globs")
	initCmd.Flags().StringVar(&cfgTypes, "types", "", "comma-separated file type names")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 1<<20, "skip content scanning files larger than this")
	initCmd.Flags().IntVar(&cfgThreads, "threads", 0, "worker hint for external backends (0=GOMAXPROCS)")
	initCmd.Flags().StringVar(&cfgBackend, "backend", "", "search backend: auto | builtin | ripgrep")
	initCmd.Flags().StringVar(&cfgEditor, "editor", "", "editor command for the TUI open action")
	initCmd.Flags().BoolVar(&cfgHidden, "hidden", false, "search hidden files by default")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	fc := config.FileConfig{
		Include:  optStrPtr(cfgInclude),
		Exclude:  optStrPtr(cfgExclude),
		Types:    optStrPtr(cfgTypes),
		MaxBytes: int64Ptr(cfgMaxBytes),
		Threads:  intPtr(cfgThreads),
		Hidden:   boolPtr(cfgHidden),
		NoColor:  boolPtr(cfgNoColor),
		Editor:   optStrPtr(cfgEditor),
		Backend:  optStrPtr(cfgBackend),
	}

	b, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgOutput, b, 0644); err != nil {
		return err
	}
	fmt.Println("Wrote", cfgOutput)
	return nil
}

func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
