package grepper

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// run executes the CLI as a subprocess so os.Exit cannot kill the test
// binary. The returned error is the child's exit error, if any.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "."}, args...)...)
	cmd.Dir = filepath.Clean(filepath.Join("..", ".."))
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	return out.String(), err
}

func writeFixtureTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"a/b.txt":    "hello\nworld\n",
		".gitignore": "*.log\n",
		"c.log":      "world\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCLI_Search_JSON_HonorsIgnoreRules(t *testing.T) {
	dir := writeFixtureTree(t)
	out, err := run(t, "search", "--json", "--name", "*.txt", "world", dir)
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	var file, content int
	for _, m := range arr {
		path, _ := m["path"].(string)
		if path == "c.log" {
			t.Fatal("ignored file leaked into results")
		}
		switch m["kind"] {
		case "file":
			file++
			if path != "a/b.txt" {
				t.Fatalf("unexpected file row %q", path)
			}
		case "content":
			content++
			if line, _ := m["line"].(float64); line != 2 {
				t.Fatalf("expected match on line 2, got %v", m["line"])
			}
			if m["text"] != "world" {
				t.Fatalf("expected text 'world', got %v", m["text"])
			}
		}
	}
	if file != 1 || content != 1 {
		t.Fatalf("expected 1 file + 1 content row, got %d + %d\n%s", file, content, out)
	}
}

func TestCLI_Files_JSON(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes_one.txt", "other.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	out, err := run(t, "files", "--json", "notes", dir)
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(arr) != 1 || arr[0]["kind"] != "file" || arr[0]["path"] != "notes_one.txt" {
		t.Fatalf("unexpected files output: %s", out)
	}
}

func TestCLI_Folders_JSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub_match"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub_match", "x.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "folders", "--json", "sub", dir)
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(arr) != 1 || arr[0]["kind"] != "folder" || arr[0]["path"] != "sub_match" {
		t.Fatalf("unexpected folders output: %s", out)
	}
}

func TestCLI_CI_ExitCodeAndBaseline(t *testing.T) {
	dir := writeFixtureTree(t)
	base := filepath.Join(t.TempDir(), "base.json")

	// gate fails while the match is not accepted
	out, err := run(t, "ci", "--json", "--baseline", base, "world", dir)
	ee, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected exit error, got %v\n%s", err, out)
	}
	if code := ee.ExitCode(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}

	// accept the current matches, then the gate passes
	if out, err := run(t, "baseline", "update", "--baseline", base, "world", dir); err != nil {
		t.Fatalf("baseline update: %v\n%s", err, out)
	}
	out, err = run(t, "ci", "--json", "--baseline", base, "world", dir)
	if err != nil {
		t.Fatalf("expected clean exit after baseline update: %v\n%s", err, out)
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(out), &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(arr) != 0 {
		t.Fatalf("expected no new matches, got %s", out)
	}
}
