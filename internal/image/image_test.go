package image

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/types"
)

func makeTar(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0600,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func newTestSearcher(t *testing.T, cfg Config, emit func(types.Match) bool) (*searcher, *engine.Stats) {
	t.Helper()
	var stats engine.Stats
	s, err := newSearcher(cfg, emit, &stats)
	if err != nil {
		t.Fatal(err)
	}
	return s, &stats
}

func TestSearchLayer_ContentMatches(t *testing.T) {
	tarBuf := makeTar(t, map[string]string{
		"etc/app/config.yaml": "endpoint: prod\npassword: hunter2\n",
		"usr/bin/tool":        "\x00\x01binary password stuff",
	})

	var got []types.Match
	s, stats := newTestSearcher(t, Config{Ref: "example.com/app:v1", Content: "password"}, func(m types.Match) bool {
		got = append(got, m)
		return true
	})

	if err := s.searchLayer(context.Background(), "example.com/app:v1::sha256:abc", tarBuf); err != nil {
		t.Fatal(err)
	}

	var contents []types.Match
	for _, m := range got {
		if m.Kind == types.KindContent {
			contents = append(contents, m)
		}
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content match, got %+v", contents)
	}
	cm := contents[0]
	if cm.Path != "example.com/app:v1::sha256:abc::etc/app/config.yaml" {
		t.Fatalf("virtual path %q", cm.Path)
	}
	if cm.Line != 2 || !strings.Contains(cm.Text, "hunter2") {
		t.Fatalf("unexpected match %+v", cm)
	}
	// the binary entry was seen but never content scanned
	if stats.Scanned != 1 {
		t.Fatalf("scanned %d entries", stats.Scanned)
	}
}

func TestSearchLayer_NameGlob(t *testing.T) {
	tarBuf := makeTar(t, map[string]string{
		"app/server.py":  "print('hi')\n",
		"app/notes.txt":  "hello\n",
		"app/.wh.gone":   "whiteout\n",
		"app/sub/run.py": "print('yo')\n",
	})

	var got []string
	s, _ := newTestSearcher(t, Config{Ref: "r", NameGlob: "*.py"}, func(m types.Match) bool {
		got = append(got, m.Path)
		return true
	})

	if err := s.searchLayer(context.Background(), "r::sha256:x", tarBuf); err != nil {
		t.Fatal(err)
	}
	want := 2
	if len(got) != want {
		t.Fatalf("expected %d entries, got %v", want, got)
	}
	for _, p := range got {
		if !strings.HasSuffix(p, ".py") {
			t.Fatalf("glob leaked %s", p)
		}
	}
}

func TestSearchLayer_EmitStops(t *testing.T) {
	tarBuf := makeTar(t, map[string]string{
		"a.txt": "x\n",
		"b.txt": "x\n",
		"c.txt": "x\n",
	})

	count := 0
	s, _ := newTestSearcher(t, Config{Ref: "r", NameGlob: "*.txt"}, func(types.Match) bool {
		count++
		return count < 2
	})

	err := s.searchLayer(context.Background(), "r::sha256:x", tarBuf)
	if !errors.Is(err, errStopped) {
		t.Fatalf("expected errStopped, got %v", err)
	}
	if count != 2 {
		t.Fatalf("emitted %d times", count)
	}
}

func TestSearchLayer_EntryLimit(t *testing.T) {
	tarBuf := makeTar(t, map[string]string{
		"a.txt": "x\n", "b.txt": "x\n", "c.txt": "x\n", "d.txt": "x\n",
	})

	var warned bool
	var got int
	s, _ := newTestSearcher(t, Config{
		Ref:      "r",
		NameGlob: "*",
		Limits:   Limits{MaxEntries: 2},
		Warn:     func(string, error) { warned = true },
	}, func(types.Match) bool {
		got++
		return true
	})

	if err := s.searchLayer(context.Background(), "r::sha256:x", tarBuf); err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("limit ignored, emitted %d", got)
	}
	if !warned {
		t.Fatal("expected a limit warning")
	}
}

func TestSearch_BadReference(t *testing.T) {
	_, err := Search(context.Background(), Config{Ref: "not a ref!", Content: "x"}, func(types.Match) bool { return true })
	if !errors.Is(err, engine.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearch_NeedsPatternOrGlob(t *testing.T) {
	_, err := Search(context.Background(), Config{Ref: "example.com/app:v1"}, func(types.Match) bool { return true })
	if !errors.Is(err, engine.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearchLayer_FirstOnly(t *testing.T) {
	tarBuf := makeTar(t, map[string]string{
		"log.txt": "hit\nhit\nhit\n",
	})

	var contents int
	s, _ := newTestSearcher(t, Config{Ref: "r", Content: "hit", FirstOnly: true}, func(m types.Match) bool {
		if m.Kind == types.KindContent {
			contents++
		}
		return true
	})

	if err := s.searchLayer(context.Background(), "r::sha256:x", tarBuf); err != nil {
		t.Fatal(err)
	}
	if contents != 1 {
		t.Fatalf("expected one content match, got %d", contents)
	}
}
