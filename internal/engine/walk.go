package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/atifafzal786/grepper/internal/ignore"
	"github.com/atifafzal786/grepper/internal/types"
)

const (
	// binarySniffBytes is how much of a file is inspected for NUL bytes
	// before content scanning. A NUL in this window classifies the file
	// as binary and it is skipped.
	binarySniffBytes = 2048

	// maxLineBytes caps a single scanned line. Longer lines (minified
	// bundles, single line data dumps) abort the file with a warning
	// instead of blowing up memory.
	maxLineBytes = 1 << 20

	readBufSize = 64 << 10

	// cancelCheckLines is how often the per line loops poll for
	// cancellation when no match interrupts them.
	cancelCheckLines = 1024
)

// walk drives the traversal for one search. Directories are visited in
// lexical order, so two runs over the same tree produce the same result
// sequence.
func (s *Search) walk(ctx context.Context) error {
	root := s.comp.root
	var prov *ignore.Provider
	if !s.cfg.NoIgnore {
		prov = ignore.NewProvider(root, func(file string, line int, problem string) {
			s.warn(file, fmt.Errorf("line %d: %s", line, problem))
		})
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			s.warn(p, walkErr)
			return nil
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			s.warn(p, err)
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if !s.cfg.NoDefaultExcludes && isDefaultDirExcluded(name) {
				return fs.SkipDir
			}
			if !s.cfg.IncludeHidden && isHidden(name) {
				return fs.SkipDir
			}
			if prov != nil && prov.MatcherFor(parentDir(rel)).MatchWithType(rel, true) {
				return fs.SkipDir
			}
			// A directory past the depth cap is neither descended into nor
			// reported as a folder.
			if s.cfg.MaxDepth > 0 && fileDepth(rel)+1 > s.cfg.MaxDepth {
				return fs.SkipDir
			}
			if s.cfg.Mode == ModeFolders {
				if !s.visitFolder(ctx, p, rel, name, d) {
					return ctx.Err()
				}
			}
			return nil
		}

		if s.cfg.Mode == ModeFolders {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !s.cfg.IncludeHidden && isHidden(name) {
			return nil
		}
		if prov != nil && prov.MatcherFor(parentDir(rel)).Match(rel) {
			return nil
		}
		if len(s.comp.includeGlobs) > 0 && !matchAnyGlob(rel, s.comp.includeGlobs) {
			return nil
		}
		if len(s.comp.excludeGlobs) > 0 && matchAnyGlob(rel, s.comp.excludeGlobs) {
			return nil
		}
		if len(s.comp.typeGlobs) > 0 && !matchAnyGlob(rel, s.comp.typeGlobs) {
			return nil
		}

		switch s.cfg.Mode {
		case ModeFiles:
			if !s.visitFileName(ctx, p, rel, name, d) {
				return ctx.Err()
			}
		default:
			if !s.visitFile(ctx, p, rel, name, d) {
				return ctx.Err()
			}
		}
		return nil
	})
}

// visitFile handles one candidate in text mode: the name glob gate, the
// file match itself and, when a content pattern is set, the line scan.
func (s *Search) visitFile(ctx context.Context, p, rel, name string, d fs.DirEntry) bool {
	if s.comp.nameGlob != "" && !matchNameGlob(s.comp.nameGlob, rel, name) {
		return true
	}
	s.progress()
	s.stats.Seen++

	var size int64
	var mod time.Time
	if info, err := d.Info(); err == nil {
		size = info.Size()
		mod = info.ModTime()
	}
	if !s.emit(ctx, types.FileMatch(rel, size, mod, false)) {
		return false
	}
	if s.comp.content == nil {
		return true
	}
	if s.cfg.MaxBytes > 0 && size > s.cfg.MaxBytes {
		return true
	}
	return s.scanFile(ctx, p, rel)
}

// visitFileName handles one candidate in files mode: match the name
// pattern, optionally check the contents, emit a file result.
func (s *Search) visitFileName(ctx context.Context, p, rel, name string, d fs.DirEntry) bool {
	if s.comp.name != nil && !s.comp.name.Match(name) {
		return true
	}
	s.progress()
	s.stats.Seen++

	var size int64
	var mod time.Time
	if info, err := d.Info(); err == nil {
		size = info.Size()
		mod = info.ModTime()
	}
	hit := false
	if s.comp.content != nil {
		if s.cfg.MaxBytes == 0 || size <= s.cfg.MaxBytes {
			hit = s.contains(ctx, p, rel)
		}
		if ctx.Err() != nil {
			return false
		}
		// With a content pattern the file list only carries files
		// whose contents matched.
		if !hit {
			return true
		}
	}
	return s.emit(ctx, types.FileMatch(rel, size, mod, hit))
}

// visitFolder handles one candidate in folders mode. The content check
// only looks at files directly inside the folder, not the whole
// subtree.
func (s *Search) visitFolder(ctx context.Context, p, rel, name string, d fs.DirEntry) bool {
	if s.comp.name != nil && !s.comp.name.Match(name) {
		return true
	}
	s.progress()
	s.stats.Seen++

	entries, err := os.ReadDir(p)
	if err != nil {
		s.warn(rel, err)
		s.stats.Skipped++
		return true
	}
	files := 0
	hit := false
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files++
		if hit || s.comp.content == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.cfg.MaxBytes > 0 && info.Size() > s.cfg.MaxBytes {
			continue
		}
		hit = s.contains(ctx, filepath.Join(p, e.Name()), path.Join(rel, e.Name()))
		if ctx.Err() != nil {
			return false
		}
	}
	if s.comp.content != nil && !hit {
		return true
	}

	var mod time.Time
	if info, err := d.Info(); err == nil {
		mod = info.ModTime()
	}
	return s.emit(ctx, types.FolderMatch(rel, mod, hit, files))
}

// scanFile streams one file line by line and emits a content match per
// matching line, in ascending line order. Binary files are detected by
// a NUL byte in the leading window and skipped whole.
func (s *Search) scanFile(ctx context.Context, p, rel string) bool {
	f, err := os.Open(p)
	if err != nil {
		s.warn(rel, err)
		s.stats.Skipped++
		return true
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, readBufSize)
	head, _ := br.Peek(binarySniffBytes)
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	s.stats.Scanned++

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, readBufSize), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if line%cancelCheckLines == 0 && ctx.Err() != nil {
			return false
		}
		text := sc.Text()
		start, end, ok := s.comp.content.Find(text)
		if !ok {
			continue
		}
		if !s.emit(ctx, types.ContentMatch(rel, line, text, start, end)) {
			return false
		}
		if s.cfg.FirstOnly {
			return true
		}
	}
	if err := sc.Err(); err != nil {
		s.warn(rel, err)
		s.stats.Skipped++
	}
	return true
}

// contains reports whether any line of the file matches the content
// pattern. Binary and unreadable files never match.
func (s *Search) contains(ctx context.Context, p, rel string) bool {
	f, err := os.Open(p)
	if err != nil {
		s.warn(rel, err)
		s.stats.Skipped++
		return false
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, readBufSize)
	head, _ := br.Peek(binarySniffBytes)
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	s.stats.Scanned++

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, readBufSize), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if line%cancelCheckLines == 0 && ctx.Err() != nil {
			return false
		}
		if s.comp.content.Match(sc.Text()) {
			return true
		}
	}
	return false
}

func parentDir(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}
