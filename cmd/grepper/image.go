package grepper

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/config"
	"github.com/atifafzal786/grepper/internal/image"
	"github.com/atifafzal786/grepper/internal/types"
)

var (
	imgName          string
	imgRegex         bool
	imgCase          bool
	imgWord          bool
	imgFirstOnly     bool
	imgMaxFileBytes  int64
	imgMaxTotalBytes int64
	imgMaxEntries    int
	imgTimeBudget    time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "image <image-ref> <pattern>",
		Short: "Search file contents inside a remote container image",
		Long:  "Stream the layers of a remote container image and search entry contents without pulling the image to disk. Results carry virtual paths of the form ref::layer-digest::entry/path. Authentication uses the local Docker keychain.",
		Args:  cobra.ExactArgs(2),
		RunE:  runImage,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&imgName, "name", "", "only scan entries whose base name matches this glob")
	cmd.Flags().BoolVar(&imgRegex, "regex", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&imgCase, "case", false, "case sensitive matching")
	cmd.Flags().BoolVar(&imgWord, "word", false, "whole word matching")
	cmd.Flags().BoolVar(&imgFirstOnly, "first-only", false, "stop after the first match per entry")
	cmd.Flags().Int64Var(&imgMaxFileBytes, "max-file-bytes", 0, "per entry decompressed cap (0 = default)")
	cmd.Flags().Int64Var(&imgMaxTotalBytes, "max-total-bytes", 0, "whole image decompressed cap (0 = default)")
	cmd.Flags().IntVar(&imgMaxEntries, "max-entries", 0, "entries inspected across all layers (0 = default)")
	cmd.Flags().DurationVar(&imgTimeBudget, "time-budget", 0, "wall clock budget for the whole image (0 = default)")
}

func runImage(cmd *cobra.Command, args []string) error {
	limits := image.DefaultLimits()
	lc := loadLayered(".")
	applyImageConfig(&limits, lc.global.Image)
	applyImageConfig(&limits, lc.local.Image)
	if imgMaxFileBytes > 0 {
		limits.MaxFileBytes = imgMaxFileBytes
	}
	if imgMaxTotalBytes > 0 {
		limits.MaxTotalBytes = imgMaxTotalBytes
	}
	if imgMaxEntries > 0 {
		limits.MaxEntries = imgMaxEntries
	}
	if imgTimeBudget > 0 {
		limits.TimeBudget = imgTimeBudget
	}

	cfg := image.Config{
		Ref:           args[0],
		NameGlob:      imgName,
		Content:       args[1],
		Regex:         imgRegex,
		CaseSensitive: imgCase,
		WholeWord:     imgWord,
		FirstOnly:     imgFirstOnly,
		Limits:        limits,
		Warn: func(path string, err error) {
			_, _ = fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, err)
		},
	}

	if maybeNotifyUpdate() {
		return nil
	}
	var matches []types.Match
	stats, err := image.Search(cmd.Context(), cfg, func(m types.Match) bool {
		matches = append(matches, m)
		return true
	})
	if err != nil {
		return fmt.Errorf("image search error: %w", err)
	}
	return renderMatches(matches, stats)
}

// applyImageConfig overlays config file limits; flags override afterwards.
func applyImageConfig(l *image.Limits, ic *config.ImageConfig) {
	if ic == nil {
		return
	}
	if ic.MaxFileBytes != nil && *ic.MaxFileBytes > 0 {
		l.MaxFileBytes = *ic.MaxFileBytes
	}
	if ic.MaxTotalBytes != nil && *ic.MaxTotalBytes > 0 {
		l.MaxTotalBytes = *ic.MaxTotalBytes
	}
	if ic.MaxEntries != nil && *ic.MaxEntries > 0 {
		l.MaxEntries = *ic.MaxEntries
	}
	if ic.TimeBudget != nil {
		if d, err := time.ParseDuration(*ic.TimeBudget); err == nil && d > 0 {
			l.TimeBudget = d
		}
	}
}
