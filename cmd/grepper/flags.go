package grepper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/backend"
	"github.com/atifafzal786/grepper/internal/backend/factory"
	"github.com/atifafzal786/grepper/internal/config"
	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/report"
	"github.com/atifafzal786/grepper/internal/tui"
	"github.com/atifafzal786/grepper/internal/types"
)

// searchOpts holds the candidate-gate flags shared by the search, files,
// folders, ci and baseline commands. Each command registers its own copy
// so flag values never bleed between subcommands.
type searchOpts struct {
	name      string
	content   string
	include   string
	exclude   string
	types     []string
	regex     bool
	caseSens  bool
	word      bool
	hidden    bool
	noIgnore  bool
	noDefault bool
	maxDepth  int
	maxBytes  int64
	firstOnly bool
	tui       bool
}

func addGateFlags(cmd *cobra.Command, o *searchOpts) {
	f := cmd.Flags()
	f.BoolVar(&o.regex, "regex", false, "treat patterns as regular expressions")
	f.BoolVar(&o.caseSens, "case", false, "case sensitive matching")
	f.BoolVar(&o.word, "word", false, "whole word content matching")
	f.StringVar(&o.include, "include", "", "comma-separated include globs")
	f.StringVar(&o.exclude, "exclude", "", "comma-separated exclude globs")
	f.StringSliceVarP(&o.types, "type", "t", nil, "restrict to named file types (see 'grepper types')")
	f.BoolVar(&o.hidden, "hidden", false, "search hidden files and directories")
	f.BoolVar(&o.noIgnore, "no-ignore", false, "do not honor .gitignore style files")
	f.BoolVar(&o.noDefault, "no-default-excludes", false, "do not apply the built-in exclude list (.git, node_modules, build output)")
	f.IntVar(&o.maxDepth, "max-depth", 0, "descend at most this many levels below the root (0 = unlimited)")
	f.Int64Var(&o.maxBytes, "max-bytes", 0, "skip content scanning files larger than this (0 = no limit)")
}

// layeredConfig keeps the local and global config files around for the
// settings that live outside engine.Config.
type layeredConfig struct {
	local, global config.FileConfig
}

func loadLayered(root string) layeredConfig {
	var lc layeredConfig
	if c, err := config.LoadGlobal(); err == nil {
		lc.global = c
	}
	if c, err := config.LoadLocal(root); err == nil {
		lc.local = c
	}
	return lc
}

func (lc layeredConfig) backendChoice() string {
	if c := pickString(flagBackend, lc.local.Backend, lc.global.Backend); c != "" {
		return c
	}
	return factory.ChoiceAuto
}

func (lc layeredConfig) ripgrepPath() string {
	if p := lc.local.GetRipgrepConfig().GetBinaryPath(); p != "" {
		return p
	}
	return lc.global.GetRipgrepConfig().GetBinaryPath()
}

func (lc layeredConfig) editor() string {
	return pickString("", lc.local.Editor, lc.global.Editor)
}

// engineConfig merges flags with the local and global config files,
// CLI first. Pattern fields are left for the caller: text mode fills
// NameGlob and Content, files and folders modes fill NamePattern.
func (o *searchOpts) engineConfig(root string, mode engine.Mode) (engine.Config, layeredConfig, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return engine.Config{}, layeredConfig{}, fmt.Errorf("%w: root %q: %v", engine.ErrConfiguration, root, err)
	}
	lc := loadLayered(abs)

	kinds := o.types
	if len(kinds) == 0 {
		if t := pickString("", lc.local.Types, lc.global.Types); t != "" {
			kinds = splitList(t)
		}
	}

	cfg := engine.Config{
		Root:              abs,
		Mode:              mode,
		Regex:             pickBool(o.regex, lc.local.Regex, lc.global.Regex),
		CaseSensitive:     pickBool(o.caseSens, lc.local.CaseSensitive, lc.global.CaseSensitive),
		WholeWord:         pickBool(o.word, lc.local.WholeWord, lc.global.WholeWord),
		FirstOnly:         o.firstOnly,
		IncludeGlobs:      pickString(o.include, lc.local.Include, lc.global.Include),
		ExcludeGlobs:      pickString(o.exclude, lc.local.Exclude, lc.global.Exclude),
		Types:             kinds,
		MaxBytes:          pickInt64(o.maxBytes, lc.local.MaxBytes, lc.global.MaxBytes),
		MaxDepth:          pickInt(o.maxDepth, lc.local.MaxDepth, lc.global.MaxDepth),
		IncludeHidden:     pickBool(o.hidden, lc.local.Hidden, lc.global.Hidden),
		NoIgnore:          pickBool(o.noIgnore, lc.local.NoIgnore, lc.global.NoIgnore),
		NoDefaultExcludes: o.noDefault,
		Threads:           pickInt(flagThreads, lc.local.Threads, lc.global.Threads),
		Warn: func(path string, err error) {
			_, _ = fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, err)
		},
	}
	// config files carry the positive form ("apply default excludes")
	if !cfg.NoDefaultExcludes {
		if lc.local.DefaultExcludes != nil {
			cfg.NoDefaultExcludes = !*lc.local.DefaultExcludes
		} else if lc.global.DefaultExcludes != nil {
			cfg.NoDefaultExcludes = !*lc.global.DefaultExcludes
		}
	}
	return cfg, lc, nil
}

// collectMatches runs cfg to completion on the selected backend.
func collectMatches(cfg engine.Config, lc layeredConfig) ([]types.Match, engine.Stats, error) {
	be, err := factory.New(cfg, lc.backendChoice(), lc.ripgrepPath())
	if err != nil {
		return nil, engine.Stats{}, err
	}
	h, err := be.Start(context.Background(), cfg)
	if err != nil {
		return nil, engine.Stats{}, err
	}
	var matches []types.Match
	for m := range h.Results() {
		matches = append(matches, m)
	}
	stats, err := h.Wait()
	return matches, stats, err
}

// runTUI hands the search to the interactive browser. The engine is
// restarted by the browser itself on rerun, so it gets a starter rather
// than a handle.
func runTUI(cfg engine.Config, lc layeredConfig) error {
	if os.Getenv("EDITOR") == "" {
		if ed := lc.editor(); ed != "" {
			_ = os.Setenv("EDITOR", ed)
		}
	}
	base := cfg
	base.Warn = nil // stderr writes would tear the alternate screen
	return tui.Run(base.Mode, base.Content != "", func(progress func()) (backend.Handle, error) {
		c := base
		c.Progress = progress
		be, err := factory.New(c, lc.backendChoice(), lc.ripgrepPath())
		if err != nil {
			return nil, err
		}
		return be.Start(context.Background(), c)
	})
}

// renderMatches writes the collected results in the selected format.
func renderMatches(matches []types.Match, stats engine.Stats) error {
	if matches == nil {
		matches = []types.Match{}
	} // no `null` in JSON
	switch {
	case flagJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	case flagCSV:
		return report.WriteCSV(os.Stdout, matches)
	case flagFormat == "text":
		report.PrintText(os.Stdout, matches, printOptions(stats))
	default:
		report.PrintTable(os.Stdout, matches, printOptions(stats))
	}
	return nil
}

func printOptions(stats engine.Stats) report.PrintOptions {
	return report.PrintOptions{
		NoColor:      flagNoColor,
		Duration:     stats.Duration,
		FilesSeen:    stats.Seen,
		FilesScanned: stats.Scanned,
		Skipped:      stats.Skipped,
	}
}
