package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/types"
)

func TestView_NotReady(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("expected initializing placeholder, got %q", got)
	}
}

func TestView_Quitting(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.quitting = true
	if got := m.View(); got != "" {
		t.Errorf("expected empty view while quitting, got %q", got)
	}
}

func TestView_StatusLine(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.ready = true
	m.width = 120
	m.height = 40
	m.matches = []types.Match{
		types.ContentMatch("src/a.go", 3, "x := 1", 0, 1),
	}
	m.applyFilters()
	m.doneOnce = true
	m.stats = engine.Stats{Seen: 9, Duration: 2 * time.Second}

	out := m.View()
	if !strings.Contains(out, "Status:") {
		t.Errorf("expected a status line, got:\n%s", out)
	}
	if !strings.Contains(out, "Files: 9") {
		t.Errorf("expected the files counter, got:\n%s", out)
	}
	if !strings.Contains(out, "Matches: 1") {
		t.Errorf("expected the match counter, got:\n%s", out)
	}
	if !strings.Contains(out, "files/s") {
		t.Errorf("expected a rate label, got:\n%s", out)
	}
}

func TestView_FoldersModeLabels(t *testing.T) {
	m := newTestModel(t, engine.ModeFolders, false)
	m.ready = true
	m.width = 120
	m.height = 40

	out := m.View()
	if !strings.Contains(out, "Folders: 0") {
		t.Errorf("expected folder counter label, got:\n%s", out)
	}
	if !strings.Contains(out, "folders/s") {
		t.Errorf("expected folder rate label, got:\n%s", out)
	}
}

func TestView_FilterInfo(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.ready = true
	m.width = 120
	m.height = 40
	m.matches = []types.Match{
		types.ContentMatch("a.txt", 1, "alpha", 0, 5),
		types.ContentMatch("b.txt", 1, "bravo", 0, 5),
	}
	m.searchQuery = "alpha"
	m.applyFilters()

	out := m.View()
	if !strings.Contains(out, "FILTER") {
		t.Errorf("expected filter info, got:\n%s", out)
	}
	if !strings.Contains(out, "1/2") {
		t.Errorf("expected showing count, got:\n%s", out)
	}
}

func TestView_EmptyStates(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.ready = true
	m.width = 100
	m.height = 40

	m.searching = true
	if out := m.View(); !strings.Contains(out, "No results yet") {
		t.Errorf("expected running empty state, got:\n%s", out)
	}

	m.searching = false
	m.doneOnce = true
	if out := m.View(); !strings.Contains(out, "No matches found") {
		t.Errorf("expected idle empty state, got:\n%s", out)
	}

	m.matches = []types.Match{types.ContentMatch("a.txt", 1, "alpha", 0, 5)}
	m.searchQuery = "zzz"
	m.applyFilters()
	if out := m.View(); !strings.Contains(out, "No results match filter") {
		t.Errorf("expected filtered empty state, got:\n%s", out)
	}
}

func TestView_HelpOverlay(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.ready = true
	m.width = 100
	m.height = 50
	m.showHelp = true

	out := m.View()
	if !strings.Contains(out, "Keyboard Shortcuts") {
		t.Errorf("expected help overlay, got:\n%s", out)
	}
	if !strings.Contains(out, "Pause / resume stream") {
		t.Errorf("expected search control help, got:\n%s", out)
	}
}

func TestView_ExportOverlay(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	m.ready = true
	m.width = 100
	m.height = 50
	m.matches = []types.Match{types.ContentMatch("a.txt", 1, "alpha", 0, 5)}
	m.applyFilters()
	m.showExportMenu = true

	out := m.View()
	if !strings.Contains(out, "Export Results") {
		t.Errorf("expected export overlay, got:\n%s", out)
	}
	if !strings.Contains(out, "Exporting 1 results") {
		t.Errorf("expected export count, got:\n%s", out)
	}
}

func TestInit(t *testing.T) {
	m := newTestModel(t, engine.ModeText, true)
	if cmd := m.Init(); cmd == nil {
		t.Error("Init returned nil command")
	}
}
