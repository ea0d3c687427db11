package engine

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/atifafzal786/grepper/internal/types"
)

func filePaths(t *testing.T, res Result) []string {
	t.Helper()
	return matchPaths(byKind(res.Matches, types.KindFile))
}

func TestWalk_IgnoredDirNotDescended(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".gitignore", "logs/\n!logs/keep.txt\n")
	mustWriteFile(t, dir, "logs/app.log", "needle\n")
	mustWriteFile(t, dir, "logs/keep.txt", "needle\n")
	mustWriteFile(t, dir, "src/main.go", "needle\n")

	res, err := Scan(Config{Root: dir, Content: "needle"})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range matchPaths(res.Matches) {
		if strings.HasPrefix(p, "logs/") {
			t.Fatalf("excluded directory leaked %s", p)
		}
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"src/main.go"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalk_NegationReincludes(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".gitignore", "*.log\n!important.log\n")
	mustWriteFile(t, dir, "debug.log", "x")
	mustWriteFile(t, dir, "important.log", "x")

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"important.log"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalk_NestedIgnoreOverridesParent(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".gitignore", "*.tmp\n")
	mustWriteFile(t, dir, "a.tmp", "x")
	mustWriteFile(t, dir, "sub/.gitignore", "!keep.tmp\n")
	mustWriteFile(t, dir, "sub/keep.tmp", "x")
	mustWriteFile(t, dir, "sub/drop.tmp", "x")

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"sub/keep.tmp"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalk_NoIgnoreDisablesRules(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".gitignore", "*.log\n")
	mustWriteFile(t, dir, "app.log", "x")

	res, err := Scan(Config{Root: dir, NoIgnore: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"app.log"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalk_HiddenSkippedByDefault(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, ".env", "needle")
	mustWriteFile(t, dir, ".config/settings.toml", "needle")
	mustWriteFile(t, dir, "visible.txt", "needle")

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"visible.txt"}) {
		t.Fatalf("unexpected files %v", got)
	}

	res, err = Scan(Config{Root: dir, IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{".config/settings.toml", ".env", "visible.txt"}
	if got := filePaths(t, res); !reflect.DeepEqual(got, want) {
		t.Fatalf("with hidden included, got %v", got)
	}
}

func TestWalk_DefaultExcludes(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "node_modules/pkg/index.js", "needle")
	mustWriteFile(t, dir, "app.js", "needle")

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"app.js"}) {
		t.Fatalf("unexpected files %v", got)
	}

	res, err = Scan(Config{Root: dir, NoDefaultExcludes: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); len(got) != 2 {
		t.Fatalf("with excludes off, got %v", got)
	}
}

func TestWalk_IncludeExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.txt", "hello")
	mustWriteFile(t, dir, "b.go", "package main\n")
	mustWriteFile(t, dir, "docs/c.md", "doc")

	res, err := Scan(Config{Root: dir, IncludeGlobs: "**/*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"b.go"}) {
		t.Fatalf("include globs failed, got %v", got)
	}

	res, err = Scan(Config{Root: dir, ExcludeGlobs: "**/*.md"})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range filePaths(t, res) {
		if p == "docs/c.md" {
			t.Fatalf("exclude globs failed, saw %s", p)
		}
	}
}

func TestWalk_TypeFilter(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "main.go", "package main")
	mustWriteFile(t, dir, "notes.txt", "x")
	mustWriteFile(t, dir, "style.css", "x")

	res, err := Scan(Config{Root: dir, Types: []string{"go", "css"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"main.go", "style.css"}
	if got := filePaths(t, res); !reflect.DeepEqual(got, want) {
		t.Fatalf("type filter got %v", got)
	}
}

func TestWalk_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "top.txt", "x")
	mustWriteFile(t, dir, "d1/mid.txt", "x")
	mustWriteFile(t, dir, "d1/d2/deep.txt", "x")

	res, err := Scan(Config{Root: dir, MaxDepth: 1})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"d1/mid.txt", "top.txt"}
	if got := filePaths(t, res); !reflect.DeepEqual(got, want) {
		t.Fatalf("depth 1 got %v", got)
	}
}

func TestWalk_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "c.txt", "x")
	mustWriteFile(t, dir, "a.txt", "x")
	mustWriteFile(t, dir, "b/z.txt", "x")

	first, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.txt", "b/z.txt", "c.txt"}
	if got := filePaths(t, first); !reflect.DeepEqual(got, want) {
		t.Fatalf("lexical order got %v", got)
	}
	if !reflect.DeepEqual(first.Matches, second.Matches) {
		t.Fatal("two runs over the same tree differ")
	}
}

func TestWalk_FirstOnly(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "f.txt", "needle\nneedle\nneedle\n")

	res, err := Scan(Config{Root: dir, Content: "needle", FirstOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	cms := byKind(res.Matches, types.KindContent)
	if len(cms) != 1 || cms[0].Line != 1 {
		t.Fatalf("expected a single first match, got %+v", cms)
	}
}

func TestWalk_MaxBytesSkipsContentScan(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("filler\n", 1024) + "needle\n"
	mustWriteFile(t, dir, "big.txt", big)
	mustWriteFile(t, dir, "small.txt", "needle\n")

	res, err := Scan(Config{Root: dir, Content: "needle", MaxBytes: 64})
	if err != nil {
		t.Fatal(err)
	}
	cms := byKind(res.Matches, types.KindContent)
	if len(cms) != 1 || cms[0].Path != "small.txt" {
		t.Fatalf("oversized file should not be scanned, got %+v", cms)
	}
	// the big file still shows up as a file match
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"big.txt", "small.txt"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalk_SymlinksNotFollowed(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "sub/real.txt", "x")
	if err := os.Symlink(dir, filepath.Join(dir, "sub", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res, err := Scan(Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"sub/real.txt"}) {
		t.Fatalf("cycle changed results: %v", got)
	}
}

func TestWalk_SymlinkRootResolved(t *testing.T) {
	parent := t.TempDir()
	real := filepath.Join(parent, "real")
	mustWriteFile(t, real, "f.txt", "x")
	link := filepath.Join(parent, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res, err := Scan(Config{Root: link})
	if err != nil {
		t.Fatal(err)
	}
	if got := filePaths(t, res); !reflect.DeepEqual(got, []string{"f.txt"}) {
		t.Fatalf("symlinked root got %v", got)
	}
}

func TestFilesMode(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "report_2024.csv", "quarterly numbers\n")
	mustWriteFile(t, dir, "report.txt", "plain notes\n")
	mustWriteFile(t, dir, "readme.md", "hello\n")

	res, err := Scan(Config{Root: dir, Mode: ModeFiles, NamePattern: "report"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"report.txt", "report_2024.csv"}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, want) {
		t.Fatalf("files mode got %v", got)
	}
	for _, m := range res.Matches {
		if m.Kind != types.KindFile {
			t.Fatalf("unexpected kind %q", m.Kind)
		}
		if m.Size == 0 || m.ModTime.IsZero() {
			t.Fatalf("missing metadata on %+v", m)
		}
	}
}

func TestFilesMode_ContentFilter(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "notes_a.txt", "has the magic word\n")
	mustWriteFile(t, dir, "notes_b.txt", "nothing here\n")

	res, err := Scan(Config{Root: dir, Mode: ModeFiles, NamePattern: "notes", Content: "magic"})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, []string{"notes_a.txt"}) {
		t.Fatalf("content filter got %v", got)
	}
	if !res.Matches[0].ContentHit {
		t.Fatalf("content flag wrong: %+v", res.Matches[0])
	}
}

func TestFilesMode_RegexName(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "img_001.png", "x")
	mustWriteFile(t, dir, "img_two.png", "x")

	res, err := Scan(Config{Root: dir, Mode: ModeFiles, NamePattern: `img_\d+`, Regex: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, []string{"img_001.png"}) {
		t.Fatalf("regex name got %v", got)
	}
}

func TestFoldersMode(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "alpha/direct.txt", "holds the magic\n")
	mustWriteFile(t, dir, "alpha/sub/deep.txt", "magic too\n")
	mustWriteFile(t, dir, "beta/other.txt", "nothing\n")

	res, err := Scan(Config{Root: dir, Mode: ModeFolders, NamePattern: "alpha", Content: "magic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected one folder, got %v", matchPaths(res.Matches))
	}
	m := res.Matches[0]
	if m.Kind != types.KindFolder || m.Path != "alpha" {
		t.Fatalf("unexpected folder match %+v", m)
	}
	// only direct children count and only they are checked for content
	if m.FileCount != 1 {
		t.Fatalf("file count %d", m.FileCount)
	}
	if !m.ContentHit {
		t.Fatal("expected a content hit from the direct child")
	}
}

func TestFoldersMode_ContentFilter(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "alpha/direct.txt", "holds the magic\n")
	mustWriteFile(t, dir, "alphabet/direct.txt", "nothing\n")

	res, err := Scan(Config{Root: dir, Mode: ModeFolders, NamePattern: "alpha", Content: "magic"})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, []string{"alpha"}) {
		t.Fatalf("content filter got %v", got)
	}
}

func TestFoldersMode_NoFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "emptydir"), 0755); err != nil {
		t.Fatal(err)
	}

	res, err := Scan(Config{Root: dir, Mode: ModeFolders, NamePattern: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 1 || res.Matches[0].FileCount != 0 {
		t.Fatalf("empty folder got %+v", res.Matches)
	}
}

func TestFoldersMode_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "pod/podlet/podling/f.txt", "x")

	// a folder at the depth cap is pruned, not reported
	res, err := Scan(Config{Root: dir, Mode: ModeFolders, NamePattern: "pod", MaxDepth: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, []string{"pod"}) {
		t.Fatalf("depth 1 folders got %v", got)
	}

	res, err = Scan(Config{Root: dir, Mode: ModeFolders, NamePattern: "pod", MaxDepth: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchPaths(res.Matches); !reflect.DeepEqual(got, []string{"pod", "pod/podlet"}) {
		t.Fatalf("depth 2 folders got %v", got)
	}
}
