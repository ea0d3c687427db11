package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSearch_Smoke(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("a needle here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	matches, err := Search(Config{Root: dir, Content: "needle"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	var content int
	for _, m := range matches {
		if m.Kind == KindContent {
			content++
		}
	}
	if content != 1 {
		t.Fatalf("expected 1 content match, got %d (total %d)", content, len(matches))
	}
	if len(TypeNames()) == 0 {
		t.Fatal("expected non-empty type names")
	}
}

func TestMarshalUnmarshalMatches(t *testing.T) {
	in := []Match{{Kind: KindContent, Path: "a.go", Line: 3, Text: "x"}}
	var buf bytes.Buffer
	if err := MarshalMatches(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := UnmarshalMatches(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Path != "a.go" || out[0].Line != 3 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
