// Package ripgrep integrates the external rg tool as a search backend.
// It maps a search configuration onto rg flags, parses the --json event
// stream and feeds the results into the same channel contract the built
// in walker uses.
package ripgrep

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atifafzal786/grepper/internal/backend"
	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/filetypes"
	"github.com/atifafzal786/grepper/internal/pattern"
	"github.com/atifafzal786/grepper/internal/types"
)

// Ripgrep shells out to rg. Supported searches: text mode, and files
// mode without a content filter. Use the builtin backend for the rest.
type Ripgrep struct {
	binaryPath string
	version    string
}

// New locates the rg binary and probes its version.
func New(customPath string) (*Ripgrep, error) {
	bm := NewBinaryManager(customPath)
	binaryPath, err := bm.Find()
	if err != nil {
		return nil, fmt.Errorf("ripgrep binary not found: %w\n\n"+
			"To fix this:\n"+
			"  1. Install ripgrep:\n"+
			"     macOS:   brew install ripgrep\n"+
			"     Linux:   apt install ripgrep (or your distro's equivalent)\n"+
			"     Windows: winget install BurntSushi.ripgrep.MSVC\n"+
			"  2. Or run: grepper backend install\n"+
			"  3. Or set ripgrep.binary in .grepper.yml", err)
	}
	version, err := bm.Version(binaryPath)
	if err != nil {
		version = "unknown"
	}
	return &Ripgrep{binaryPath: binaryPath, version: version}, nil
}

func (r *Ripgrep) Name() string { return "ripgrep" }

// Version returns the detected rg version.
func (r *Ripgrep) Version() string { return r.version }

// Start implements backend.Backend. Configuration is validated with the
// same rules as the built in engine so both backends fail fast on the
// same inputs.
func (r *Ripgrep) Start(ctx context.Context, cfg engine.Config) (backend.Handle, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = engine.ModeText
	}
	switch {
	case mode == engine.ModeFolders:
		return nil, errors.New("ripgrep backend does not support folders searches; use the builtin backend")
	case mode == engine.ModeFiles && cfg.Content != "":
		return nil, errors.New("ripgrep backend cannot filter name matches by content; use the builtin backend")
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", engine.ErrConfiguration, root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %v", engine.ErrConfiguration, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %q is not a directory", engine.ErrConfiguration, root)
	}

	if _, err := pattern.Compile(cfg.Content, cfg.Regex, cfg.CaseSensitive, cfg.WholeWord); err != nil {
		return nil, fmt.Errorf("%w: content: %v", engine.ErrConfiguration, err)
	}
	namePat, err := pattern.Compile(cfg.NamePattern, cfg.Regex, cfg.CaseSensitive, false)
	if err != nil {
		return nil, fmt.Errorf("%w: name: %v", engine.ErrConfiguration, err)
	}
	if mode != engine.ModeFiles {
		namePat = nil
	}
	var typeGlobs []string
	if len(cfg.Types) > 0 {
		typeGlobs, err = filetypes.Globs(cfg.Types)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
		}
	}

	args := buildArgs(cfg, typeGlobs)

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, r.binaryPath, args...)
	cmd.Dir = abs
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ripgrep: %w", err)
	}

	h := &handle{
		out:    make(chan types.Match, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go consume(cctx, h, cmd, stdout, &stderr, cfg.Content == "", namePat, abs, time.Now())
	return h, nil
}

// buildArgs maps a search configuration onto rg flags. Note that rg
// treats every -g as part of one allow list, while the walker applies
// the name, include and type filters as separate gates.
func buildArgs(cfg engine.Config, typeGlobs []string) []string {
	listing := cfg.Content == ""

	var args []string
	if listing {
		args = append(args, "--files")
	} else {
		args = append(args, "--json")
		if !cfg.Regex {
			args = append(args, "-F")
		}
		if cfg.CaseSensitive {
			args = append(args, "-s")
		} else {
			args = append(args, "-i")
		}
		if cfg.WholeWord {
			args = append(args, "-w")
		}
		if cfg.FirstOnly {
			args = append(args, "-m", "1")
		}
	}
	args = append(args, "--no-config")
	if cfg.IncludeHidden {
		args = append(args, "--hidden")
	}
	if cfg.NoIgnore {
		args = append(args, "--no-ignore")
	}
	if !cfg.NoDefaultExcludes {
		for _, dir := range engine.DefaultExcludedDirs() {
			args = append(args, "-g", "!**/"+dir+"/**")
		}
	}
	if cfg.MaxDepth > 0 {
		// rg counts the root itself as one level
		args = append(args, "--max-depth", strconv.Itoa(cfg.MaxDepth+1))
	}
	if cfg.MaxBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(cfg.MaxBytes, 10))
	}
	if cfg.Threads > 0 {
		args = append(args, "-j", strconv.Itoa(cfg.Threads))
	}
	if cfg.Mode != engine.ModeFiles && cfg.NameGlob != "" {
		args = append(args, "-g", cfg.NameGlob)
	}
	for _, g := range splitGlobs(cfg.IncludeGlobs) {
		args = append(args, "-g", g)
	}
	for _, g := range splitGlobs(cfg.ExcludeGlobs) {
		args = append(args, "-g", "!"+g)
	}
	for _, g := range typeGlobs {
		args = append(args, "-g", g)
	}
	if !listing {
		args = append(args, "-e", cfg.Content)
	}
	args = append(args, ".")
	return args
}

func splitGlobs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if g := strings.TrimSpace(p); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// handle adapts one rg process to the backend.Handle contract.
type handle struct {
	out    chan types.Match
	cancel context.CancelFunc
	done   chan struct{}

	stats engine.Stats
	err   error
}

func (h *handle) Results() <-chan types.Match { return h.out }

func (h *handle) Cancel() { h.cancel() }

func (h *handle) Wait() (engine.Stats, error) {
	<-h.done
	return h.stats, h.err
}

func (h *handle) emit(ctx context.Context, m types.Match) bool {
	select {
	case h.out <- m:
		h.stats.Matches++
		return true
	case <-ctx.Done():
		return false
	}
}

type rgEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rgText struct {
	Text string `json:"text"`
}

type rgBegin struct {
	Path rgText `json:"path"`
}

type rgMatch struct {
	Path       rgText `json:"path"`
	Lines      rgText `json:"lines"`
	LineNumber int    `json:"line_number"`
	Submatches []struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"submatches"`
}

// parseBegin decodes a begin event to its relative path, "" when the
// event is unusable.
func parseBegin(data json.RawMessage) string {
	var d rgBegin
	if err := json.Unmarshal(data, &d); err != nil || d.Path.Text == "" {
		return ""
	}
	return cleanRel(d.Path.Text)
}

// parseMatch decodes a match event into a content match. The span covers
// the first submatch.
func parseMatch(data json.RawMessage) (types.Match, bool) {
	var d rgMatch
	if err := json.Unmarshal(data, &d); err != nil || d.Path.Text == "" {
		return types.Match{}, false
	}
	text := strings.TrimRight(d.Lines.Text, "\r\n")
	spanStart, spanEnd := 0, 0
	if len(d.Submatches) > 0 {
		spanStart = d.Submatches[0].Start
		spanEnd = d.Submatches[0].End
	}
	return types.ContentMatch(cleanRel(d.Path.Text), d.LineNumber, text, spanStart, spanEnd), true
}

// consume drains one rg process: plain paths in listing mode, JSON
// events otherwise. It owns the handle's stats and error and closes the
// stream when the process exits.
func consume(ctx context.Context, h *handle, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, listing bool, namePat *pattern.Pattern, root string, start time.Time) {
	defer close(h.done)
	defer close(h.out)

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
loop:
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := sc.Bytes()
		if listing {
			rel := cleanRel(string(line))
			if rel == "" {
				continue
			}
			if namePat != nil && !namePat.Match(path.Base(rel)) {
				continue
			}
			size, mod := statFile(root, rel)
			h.stats.Seen++
			if !h.emit(ctx, types.FileMatch(rel, size, mod, false)) {
				break
			}
			continue
		}

		var ev rgEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "begin":
			rel := parseBegin(ev.Data)
			if rel == "" {
				continue
			}
			size, mod := statFile(root, rel)
			h.stats.Seen++
			h.stats.Scanned++
			if !h.emit(ctx, types.FileMatch(rel, size, mod, true)) {
				break loop
			}
		case "match":
			m, ok := parseMatch(ev.Data)
			if !ok {
				continue
			}
			if !h.emit(ctx, m) {
				break loop
			}
		}
	}

	werr := cmd.Wait()
	h.stats.Duration = time.Since(start)
	if ctx.Err() != nil {
		h.err = context.Canceled
		return
	}
	if werr != nil {
		// exit code 1 just means no matches
		var exitErr *exec.ExitError
		if errors.As(werr, &exitErr) && exitErr.ExitCode() == 1 {
			return
		}
		h.err = wrapRipgrepError(werr, stderr.String())
	}
}

func cleanRel(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	return strings.TrimPrefix(p, "./")
}

func statFile(root, rel string) (int64, time.Time) {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return 0, time.Time{}
	}
	return info.Size(), info.ModTime()
}

func wrapRipgrepError(err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := fmt.Sprintf("ripgrep failed (exit code %d)", exitErr.ExitCode())
		switch {
		case contains(stderr, "regex parse error"), contains(stderr, "syntax"):
			msg += "\n\nPattern rejected by ripgrep. Its regex dialect differs from Go's in a few constructs;\n" +
				"try the builtin backend if the pattern is valid Go syntax."
		case contains(stderr, "permission denied"):
			msg += "\n\nPermission denied. Check read access to the search root."
		}
		msg += fmt.Sprintf("\n\nripgrep error output:\n%s", stderr)
		return errors.New(msg)
	}
	return fmt.Errorf("ripgrep execution failed: %w\n\nError output:\n%s", err, stderr)
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
