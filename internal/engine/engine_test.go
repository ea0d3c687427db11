package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atifafzal786/grepper/internal/types"
)

func mustWriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func byKind(ms []types.Match, k types.Kind) []types.Match {
	var out []types.Match
	for _, m := range ms {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}

func matchPaths(ms []types.Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Path)
	}
	return out
}

// The canonical small tree: one ignored log file, one text file whose
// second line matches. Expect exactly one file result and one content
// result.
func TestScan_NameAndContent(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a/b.txt", "hello\nworld\n")
	mustWriteFile(t, dir, "a/c.log", "world\n")
	mustWriteFile(t, dir, ".gitignore", "*.log\n")

	res, err := Scan(Config{Root: dir, NameGlob: "*.txt", Content: "world"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(res.Matches), res.Matches)
	}
	fm := res.Matches[0]
	if fm.Kind != types.KindFile || fm.Path != "a/b.txt" || fm.Size != 12 {
		t.Fatalf("unexpected file match %+v", fm)
	}
	cm := res.Matches[1]
	if cm.Kind != types.KindContent || cm.Path != "a/b.txt" || cm.Line != 2 || cm.Text != "world" {
		t.Fatalf("unexpected content match %+v", cm)
	}
	if cm.SpanStart != 0 || cm.SpanEnd != 5 {
		t.Fatalf("unexpected span %d..%d", cm.SpanStart, cm.SpanEnd)
	}
	if res.Stats.Matches != 2 {
		t.Fatalf("stats.Matches = %d", res.Stats.Matches)
	}
}

func TestScan_ContentLinesAscend(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "f.txt", "x\nneedle\nx\nx\nneedle\n")

	res, err := Scan(Config{Root: dir, Content: "needle"})
	if err != nil {
		t.Fatal(err)
	}
	cms := byKind(res.Matches, types.KindContent)
	if len(cms) != 2 {
		t.Fatalf("expected 2 content matches, got %d", len(cms))
	}
	if cms[0].Line != 2 || cms[1].Line != 5 {
		t.Fatalf("expected lines 2 and 5, got %d and %d", cms[0].Line, cms[1].Line)
	}
}

func TestScan_EmptyContentListsFiles(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.txt", "alpha")
	mustWriteFile(t, dir, "b.txt", "")

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 file matches, got %v", matchPaths(res.Matches))
	}
	for _, m := range res.Matches {
		if m.Kind != types.KindFile {
			t.Fatalf("unexpected kind %q", m.Kind)
		}
	}
	if res.Matches[1].Path != "b.txt" || res.Matches[1].Size != 0 {
		t.Fatalf("zero byte file should match with size 0, got %+v", res.Matches[1])
	}
	if res.Stats.Scanned != 0 {
		t.Fatalf("no content pattern, yet %d files were read", res.Stats.Scanned)
	}
}

func TestScan_ZeroByteFileWithContentPattern(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "empty.txt", "")

	res, err := Scan(Config{Root: dir, Content: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Kind != types.KindFile {
		t.Fatalf("expected only the file match, got %+v", res.Matches)
	}
}

func TestScan_BinaryFileNotContentScanned(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "data.bin", "PK\x00\x03needle after the nul\n")
	mustWriteFile(t, dir, "plain.txt", "needle\n")

	res, err := Scan(Config{Root: dir, Content: "needle"})
	if err != nil {
		t.Fatal(err)
	}
	cms := byKind(res.Matches, types.KindContent)
	if len(cms) != 1 || cms[0].Path != "plain.txt" {
		t.Fatalf("binary file leaked content matches: %+v", cms)
	}
	// both files still produce file matches
	if fms := byKind(res.Matches, types.KindFile); len(fms) != 2 {
		t.Fatalf("expected 2 file matches, got %v", matchPaths(fms))
	}
	if res.Stats.Scanned != 1 {
		t.Fatalf("expected 1 scanned file, got %d", res.Stats.Scanned)
	}
}

func TestScan_CaseSensitivity(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "f.txt", "Hello\n")

	res, err := Scan(Config{Root: dir, Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byKind(res.Matches, types.KindContent)) != 1 {
		t.Fatal("insensitive search should match Hello")
	}

	res, err = Scan(Config{Root: dir, Content: "hello", CaseSensitive: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(byKind(res.Matches, types.KindContent)) != 0 {
		t.Fatal("sensitive search must not match Hello")
	}
}

func TestScan_RegexContent(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "f.txt", "order-12345\nno digits here\n")

	res, err := Scan(Config{Root: dir, Content: `order-\d+`, Regex: true})
	if err != nil {
		t.Fatal(err)
	}
	cms := byKind(res.Matches, types.KindContent)
	if len(cms) != 1 || cms[0].Line != 1 {
		t.Fatalf("unexpected regex matches %+v", cms)
	}
	if cms[0].SpanStart != 0 || cms[0].SpanEnd != 11 {
		t.Fatalf("unexpected span %d..%d", cms[0].SpanStart, cms[0].SpanEnd)
	}
}

func TestStart_InvalidRegexFailsFast(t *testing.T) {
	dir := t.TempDir()
	s, err := Start(context.Background(), Config{Root: dir, Content: "[unclosed", Regex: true})
	if err == nil {
		s.Cancel()
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("error should wrap ErrConfiguration, got %v", err)
	}
}

func TestStart_BadRoot(t *testing.T) {
	if _, err := Start(context.Background(), Config{Root: "/does/not/exist-grepper"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("missing root: %v", err)
	}
	dir := t.TempDir()
	mustWriteFile(t, dir, "f.txt", "x")
	if _, err := Start(context.Background(), Config{Root: filepath.Join(dir, "f.txt")}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("file root: %v", err)
	}
}

func TestStart_UnknownTypeAndBadGlobs(t *testing.T) {
	dir := t.TempDir()
	if _, err := Start(context.Background(), Config{Root: dir, Types: []string{"klingon"}}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := Start(context.Background(), Config{Root: dir, IncludeGlobs: "a["}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("bad glob: %v", err)
	}
}

// Start then cancel after the first result: the stream must close
// promptly and the drained tail stays near the channel buffer size,
// far under the number of pending results.
func TestStart_CancelStopsStream(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 200; i++ {
		mustWriteFile(t, dir, fmt.Sprintf("d/f%03d.txt", i), "needle\n")
	}

	s, err := Start(context.Background(), Config{Root: dir, Content: "needle"})
	if err != nil {
		t.Fatal(err)
	}
	received := 0
	if _, ok := <-s.Results(); ok {
		received++
	}
	s.Cancel()

	deadline := time.After(2 * time.Second)
drain:
	for {
		select {
		case _, ok := <-s.Results():
			if !ok {
				break drain
			}
			received++
		case <-deadline:
			t.Fatal("results channel did not close after cancel")
		}
	}
	// 200 files produce 400 results; a canceled run must stop well short
	if received >= 200 {
		t.Fatalf("received %d results after cancel", received)
	}
	if _, err := s.Wait(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScan_WarnsOnBadIgnoreLine(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".gitignore", "ok.txt\na[\n")
	mustWriteFile(t, dir, "ok.txt", "x")
	mustWriteFile(t, dir, "keep.txt", "x")

	var warned []string
	res, err := Scan(Config{
		Root: dir,
		Warn: func(path string, err error) { warned = append(warned, path+": "+err.Error()) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warned) == 0 {
		t.Fatal("expected a diagnostic for the malformed ignore line")
	}
	// the malformed line is skipped, the valid one still applies
	for _, p := range matchPaths(res.Matches) {
		if p == "ok.txt" {
			t.Fatal("valid ignore rule was dropped")
		}
	}
}
