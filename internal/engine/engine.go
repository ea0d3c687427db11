package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/atifafzal786/grepper/internal/filetypes"
	"github.com/atifafzal786/grepper/internal/pattern"
	"github.com/atifafzal786/grepper/internal/types"
)

// Mode selects what a search emits: matching content lines, matching
// file names, or matching folder names.
type Mode string

const (
	ModeText    Mode = "text"
	ModeFiles   Mode = "files"
	ModeFolders Mode = "folders"
)

// ErrConfiguration marks errors detected before any traversal starts:
// a bad root, an invalid pattern, an unknown file type. Callers can
// test for it with errors.Is.
var ErrConfiguration = errors.New("invalid search configuration")

// Config describes one search. The zero value searches nothing useful
// but is safe: hidden entries are skipped, ignore files are honored and
// the default directory excludes are applied unless the corresponding
// negative switch is set.
type Config struct {
	Root string
	Mode Mode

	// NameGlob gates file names in text mode ("" matches every name).
	NameGlob string
	// NamePattern is matched against file or folder names in files and
	// folders modes. Substring by default, regular expression when Regex
	// is set.
	NamePattern string
	// Content is the content pattern; "" disables content scanning.
	Content string

	Regex         bool
	CaseSensitive bool
	WholeWord     bool
	FirstOnly     bool // stop after the first content match per file

	IncludeGlobs string // comma separated; when set only matching files are considered
	ExcludeGlobs string // comma separated; matching files are dropped
	Types        []string

	MaxBytes int64 // files larger than this are not content scanned (0 = no limit)
	MaxDepth int   // directory levels below the root to descend into (0 = unlimited)

	IncludeHidden     bool
	NoIgnore          bool // do not read .gitignore style files
	NoDefaultExcludes bool

	// Threads is an advisory hint forwarded to external search backends.
	// The built in walker is single threaded so result order stays
	// deterministic.
	Threads int

	Progress func()                       // called once per candidate
	Warn     func(path string, err error) // non fatal per file and per rule diagnostics
}

// Stats summarizes a finished or canceled search.
type Stats struct {
	// Candidates that passed every filter: files in text and files mode,
	// folders in folders mode.
	Seen int
	// Files whose contents were actually read.
	Scanned int
	// Results emitted.
	Matches int
	// Files skipped after open or read errors.
	Skipped int

	Duration time.Duration
}

// Result is what Scan returns once a search has run to completion.
type Result struct {
	Matches []types.Match
	Stats   Stats
}

// compiled is the validated form of a Config.
type compiled struct {
	root         string
	name         *pattern.Pattern
	content      *pattern.Pattern
	nameGlob     string
	includeGlobs []string
	excludeGlobs []string
	typeGlobs    []string
}

func (cfg *Config) compile() (*compiled, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeText
		cfg.Mode = ModeText
	}
	switch mode {
	case ModeText, ModeFiles, ModeFolders:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrConfiguration, string(mode))
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", ErrConfiguration, root, err)
	}
	// A root that is itself a symlink should be searched through, so
	// resolve it up front; WalkDir never follows links below it.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", ErrConfiguration, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %q is not a directory", ErrConfiguration, root)
	}

	c := &compiled{root: abs}

	if cfg.NameGlob != "" {
		if !doublestar.ValidatePattern(cfg.NameGlob) {
			return nil, fmt.Errorf("%w: invalid name glob %q", ErrConfiguration, cfg.NameGlob)
		}
		c.nameGlob = cfg.NameGlob
	}
	c.name, err = pattern.Compile(cfg.NamePattern, cfg.Regex, cfg.CaseSensitive, false)
	if err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrConfiguration, err)
	}
	c.content, err = pattern.Compile(cfg.Content, cfg.Regex, cfg.CaseSensitive, cfg.WholeWord)
	if err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrConfiguration, err)
	}
	if mode == ModeFolders && c.name == nil && c.content == nil {
		return nil, fmt.Errorf("%w: folders mode needs a name or content pattern", ErrConfiguration)
	}

	if c.includeGlobs, err = parseGlobsList(cfg.IncludeGlobs); err != nil {
		return nil, fmt.Errorf("%w: include: %v", ErrConfiguration, err)
	}
	if c.excludeGlobs, err = parseGlobsList(cfg.ExcludeGlobs); err != nil {
		return nil, fmt.Errorf("%w: exclude: %v", ErrConfiguration, err)
	}
	if len(cfg.Types) > 0 {
		c.typeGlobs, err = filetypes.Globs(cfg.Types)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	return c, nil
}

// Search is a running search. Results are streamed on the channel
// returned by Results; the channel is closed when the traversal
// finishes, fails, or is canceled. Wait reports the final stats.
type Search struct {
	cfg    Config
	comp   *compiled
	out    chan types.Match
	cancel context.CancelFunc
	done   chan struct{}

	// written by the worker goroutine, read after done is closed
	stats Stats
	err   error
}

// Start validates cfg and launches the traversal on its own goroutine.
// Configuration problems are reported here, before any result is
// produced; per file problems later on go through cfg.Warn.
func Start(ctx context.Context, cfg Config) (*Search, error) {
	comp, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Search{
		cfg:    cfg,
		comp:   comp,
		out:    make(chan types.Match, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

// Results returns the stream of matches. Within one file, content
// matches arrive in ascending line order.
func (s *Search) Results() <-chan types.Match { return s.out }

// Cancel asks the traversal to stop. It returns immediately; the
// results channel closes shortly after, once the worker notices.
func (s *Search) Cancel() { s.cancel() }

// Wait blocks until the traversal has finished and returns the stats.
// After cancellation err is context.Canceled. Callers must drain
// Results before or while waiting.
func (s *Search) Wait() (Stats, error) {
	<-s.done
	return s.stats, s.err
}

func (s *Search) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)
	start := time.Now()
	err := s.walk(ctx)
	s.stats.Duration = time.Since(start)
	if err != nil && ctx.Err() != nil {
		err = context.Canceled
	}
	s.err = err
	s.cancel()
}

// emit sends one match unless the search has been canceled. A false
// return tells the caller to unwind.
func (s *Search) emit(ctx context.Context, m types.Match) bool {
	select {
	case s.out <- m:
		s.stats.Matches++
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Search) warn(path string, err error) {
	if s.cfg.Warn != nil {
		s.cfg.Warn(path, err)
	}
}

func (s *Search) progress() {
	if s.cfg.Progress != nil {
		s.cfg.Progress()
	}
}

// Scan runs a search to completion and collects every match.
func Scan(cfg Config) (Result, error) {
	return ScanContext(context.Background(), cfg)
}

// ScanContext is Scan bounded by ctx.
func ScanContext(ctx context.Context, cfg Config) (Result, error) {
	s, err := Start(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for m := range s.Results() {
		res.Matches = append(res.Matches, m)
	}
	res.Stats, err = s.Wait()
	return res, err
}

// parseGlobsList splits a comma separated glob list and validates each
// entry.
func parseGlobsList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	globs := make([]string, 0, len(parts))
	for _, p := range parts {
		g := strings.TrimSpace(p)
		if g == "" {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid glob %q", g)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchAnyGlob matches rel against each glob three ways: the full
// relative path, the base name, and the path with a leading "**/"
// stripped from the glob. That lets "*.go", "cmd/*.go" and
// "**/testdata/*" all behave the way users expect.
func matchAnyGlob(rel string, globs []string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
		if trimmed := trimGlobPrefix(g); trimmed != g {
			if ok, _ := doublestar.Match(trimmed, rel); ok {
				return true
			}
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	return strings.TrimPrefix(g, "**/")
}

// matchNameGlob is the text mode name gate: the glob is tried against
// the base name first, then against the full relative path so that
// path shaped globs keep working.
func matchNameGlob(glob, rel, name string) bool {
	if ok, _ := doublestar.Match(glob, name); ok {
		return true
	}
	ok, _ := doublestar.Match(glob, rel)
	return ok
}
