// Package image searches the filesystem of remote container images
// without pulling them to disk. Layers are streamed uncompressed and
// their tar entries are matched like regular files; results carry
// virtual paths of the form ref::layer-digest::entry/path.
package image

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/pattern"
	"github.com/atifafzal786/grepper/internal/types"
)

// Separator delimits components in virtual paths.
const Separator = "::"

const binarySniffBytes = 2048

// Limits bound how much of an image is inspected. Registry images can
// decompress to many times their transfer size, so every walk is capped.
type Limits struct {
	MaxFileBytes  int64         // per entry decompressed cap
	MaxTotalBytes int64         // whole image decompressed cap
	MaxEntries    int           // entries inspected across all layers
	TimeBudget    time.Duration // wall clock budget for the whole image
}

// DefaultLimits are generous enough for typical application images.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:  4 << 20,
		MaxTotalBytes: 512 << 20,
		MaxEntries:    100000,
		TimeBudget:    5 * time.Minute,
	}
}

// Config describes one image search.
type Config struct {
	Ref      string // image reference, e.g. gcr.io/proj/app:latest
	NameGlob string // entry base name gate ("" matches all)
	Content  string // content pattern ("" lists matching entries)

	Regex         bool
	CaseSensitive bool
	WholeWord     bool
	FirstOnly     bool

	Limits Limits

	Progress func()
	Warn     func(path string, err error)
}

// Search streams matches from the image to emit, which returns false to
// stop early. Authentication uses the local Docker keychain.
func Search(ctx context.Context, cfg Config, emit func(types.Match) bool) (engine.Stats, error) {
	var stats engine.Stats
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	s, err := newSearcher(cfg, emit, &stats)
	if err != nil {
		return stats, err
	}

	ref, err := name.ParseReference(cfg.Ref)
	if err != nil {
		return stats, fmt.Errorf("%w: invalid image reference %q: %v", engine.ErrConfiguration, cfg.Ref, err)
	}

	img, err := remote.Image(ref,
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
		remote.WithContext(ctx))
	if err != nil {
		return stats, fmt.Errorf("failed to fetch image metadata for %q: %w", cfg.Ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return stats, fmt.Errorf("failed to get layers for %q: %w", cfg.Ref, err)
	}

	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if s.exhausted() {
			break
		}
		digest, err := layer.Digest()
		if err != nil {
			continue
		}
		rc, err := layer.Uncompressed()
		if err != nil {
			return stats, fmt.Errorf("failed to read layer %s: %w", digest, err)
		}
		vp := cfg.Ref + Separator + digest.String()
		err = s.searchLayer(ctx, vp, rc)
		rc.Close()
		if err != nil {
			if errors.Is(err, errStopped) {
				return stats, nil
			}
			return stats, err
		}
	}
	return stats, nil
}

// errStopped signals that emit asked to stop; not an error for callers.
var errStopped = errors.New("stopped")

type searcher struct {
	cfg     Config
	content *pattern.Pattern
	emit    func(types.Match) bool
	stats   *engine.Stats

	deadline time.Time
	total    int64
	entries  int
}

func newSearcher(cfg Config, emit func(types.Match) bool, stats *engine.Stats) (*searcher, error) {
	if cfg.NameGlob != "" && !doublestar.ValidatePattern(cfg.NameGlob) {
		return nil, fmt.Errorf("%w: invalid name glob %q", engine.ErrConfiguration, cfg.NameGlob)
	}
	content, err := pattern.Compile(cfg.Content, cfg.Regex, cfg.CaseSensitive, cfg.WholeWord)
	if err != nil {
		return nil, fmt.Errorf("%w: content: %v", engine.ErrConfiguration, err)
	}
	if cfg.NameGlob == "" && content == nil {
		return nil, fmt.Errorf("%w: an image search needs a name glob or a content pattern", engine.ErrConfiguration)
	}
	s := &searcher{cfg: cfg, content: content, emit: emit, stats: stats}
	if cfg.Limits.TimeBudget > 0 {
		s.deadline = time.Now().Add(cfg.Limits.TimeBudget)
	}
	return s, nil
}

func (s *searcher) exhausted() bool {
	if s.cfg.Limits.MaxTotalBytes > 0 && s.total >= s.cfg.Limits.MaxTotalBytes {
		return true
	}
	if s.cfg.Limits.MaxEntries > 0 && s.entries >= s.cfg.Limits.MaxEntries {
		return true
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return true
	}
	return false
}

func (s *searcher) warn(p string, err error) {
	if s.cfg.Warn != nil {
		s.cfg.Warn(p, err)
	}
}

// searchLayer walks one uncompressed layer tar. Whiteout markers and
// non regular entries are skipped.
func (s *searcher) searchLayer(ctx context.Context, layerPath string, r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.exhausted() {
			s.warn(layerPath, errors.New("image limits reached, remaining entries skipped"))
			return nil
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) || hdr == nil {
			return nil
		}
		if err != nil {
			s.warn(layerPath, err)
			return nil
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		entry := strings.TrimPrefix(path.Clean(hdr.Name), "./")
		base := path.Base(entry)
		if strings.HasPrefix(base, ".wh.") {
			continue
		}
		s.entries++
		if s.cfg.NameGlob != "" {
			if ok, _ := doublestar.Match(s.cfg.NameGlob, base); !ok {
				if ok, _ := doublestar.Match(s.cfg.NameGlob, entry); !ok {
					continue
				}
			}
		}
		if s.cfg.Progress != nil {
			s.cfg.Progress()
		}
		s.stats.Seen++

		vp := layerPath + Separator + entry
		if !s.emit(types.FileMatch(vp, hdr.Size, hdr.ModTime, false)) {
			return errStopped
		}
		s.stats.Matches++
		if s.content == nil {
			continue
		}
		if s.cfg.Limits.MaxFileBytes > 0 && hdr.Size > s.cfg.Limits.MaxFileBytes {
			continue
		}
		if err := s.scanEntry(vp, tr); err != nil {
			return err
		}
	}
}

// scanEntry reads one tar entry and emits content matches. Binary
// entries are detected by a NUL byte in the leading window and skipped.
func (s *searcher) scanEntry(vp string, r io.Reader) error {
	limit := s.cfg.Limits.MaxFileBytes
	if limit <= 0 {
		limit = 4 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		s.warn(vp, err)
		s.stats.Skipped++
		return nil
	}
	s.total += int64(len(data))

	head := data
	if len(head) > binarySniffBytes {
		head = head[:binarySniffBytes]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return nil
	}
	s.stats.Scanned++

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		start, end, ok := s.content.Find(text)
		if !ok {
			continue
		}
		if !s.emit(types.ContentMatch(vp, line, text, start, end)) {
			return errStopped
		}
		s.stats.Matches++
		if s.cfg.FirstOnly {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		s.warn(vp, err)
		s.stats.Skipped++
	}
	return nil
}
