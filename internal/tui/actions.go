package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/atifafzal786/grepper/internal/report"
	"github.com/atifafzal786/grepper/internal/types"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// isVirtualPath checks if a path points inside a container image
// rather than onto the local filesystem.
func isVirtualPath(path string) bool {
	return strings.Contains(path, "::")
}

// openEditor opens the result in the user's editor, jumping to the
// matched line and column where the editor supports it.
func (m Model) openEditor(mt types.Match) tea.Cmd {
	if isVirtualPath(mt.Path) {
		return func() tea.Msg {
			return statusMsg("Cannot open files inside a container image")
		}
	}

	line := mt.Line
	if line < 1 {
		line = 1
	}
	column := 0
	if mt.Kind == types.KindContent && mt.SpanEnd > mt.SpanStart {
		column = mt.SpanStart + 1
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim" // Default to vim
	}

	// Build args based on editor type
	var args []string
	editorBase := editor
	// Extract just the editor name (handle paths like /usr/bin/vim)
	if idx := strings.LastIndex(editor, "/"); idx != -1 {
		editorBase = editor[idx+1:]
	}

	switch editorBase {
	case "code", "code-insiders":
		// VS Code: code -g file:line:column
		args = []string{"-g", fmt.Sprintf("%s:%d:%d", mt.Path, line, column)}
	case "subl", "sublime", "sublime_text":
		// Sublime: subl file:line:column
		args = []string{fmt.Sprintf("%s:%d:%d", mt.Path, line, column)}
	case "atom":
		// Atom: atom file:line:column
		args = []string{fmt.Sprintf("%s:%d:%d", mt.Path, line, column)}
	case "emacs", "emacsclient":
		// Emacs: emacs +line:column file
		args = []string{fmt.Sprintf("+%d:%d", line, column), mt.Path}
	case "nano":
		// Nano: nano +line,column file
		args = []string{fmt.Sprintf("+%d,%d", line, column), mt.Path}
	case "notepad++", "notepad++.exe":
		// Notepad++: notepad++ -nline file
		args = []string{fmt.Sprintf("-n%d", line), mt.Path}
	case "gvim":
		// gvim: gvim +line file
		args = []string{fmt.Sprintf("+%d", line), mt.Path}
	case "vi", "vim", "nvim":
		// Vim/Neovim: vim +line file (then :column on open)
		if column > 0 {
			args = []string{fmt.Sprintf("+call cursor(%d,%d)", line, column), mt.Path}
		} else {
			args = []string{fmt.Sprintf("+%d", line), mt.Path}
		}
	default:
		// Generic fallback: try vim-style +line
		args = []string{fmt.Sprintf("+%d", line), mt.Path}
	}

	c := exec.Command(editor, args...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		if err != nil {
			return statusMsg(fmt.Sprintf("Error opening editor: %v", err))
		}
		return statusMsg("Editor closed")
	})
}

// openFolder reveals the result in the system file manager. Folder
// results open themselves, everything else opens the parent.
func (m Model) openFolder(mt types.Match) tea.Cmd {
	if isVirtualPath(mt.Path) {
		return func() tea.Msg {
			return statusMsg("Cannot open folders inside a container image")
		}
	}

	target := mt.Path
	if mt.Kind != types.KindFolder {
		target = filepath.Dir(mt.Path)
	}
	if target == "" {
		target = "."
	}

	c := openerCommand(target)
	return func() tea.Msg {
		if err := c.Start(); err != nil {
			return statusMsg(fmt.Sprintf("Error opening folder: %v", err))
		}
		return statusMsg(fmt.Sprintf("Opened %s", target))
	}
}

func openerCommand(path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

func (m Model) copyPath(mt types.Match) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(mt.Path); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg("Copied path to clipboard")
	}
}

// copyMatch copies a text block describing the result. Content matches
// use the grep-style path:line: text form so they paste straight into
// issues and chat.
func (m Model) copyMatch(mt types.Match) tea.Cmd {
	var text string
	switch mt.Kind {
	case types.KindContent:
		text = fmt.Sprintf("%s:%d: %s", mt.Path, mt.Line, mt.Text)
	case types.KindFolder:
		text = fmt.Sprintf("Path: %s\nModified: %s\nFiles: %d\n",
			mt.Path, report.FormatTime(mt.ModTime), mt.FileCount)
	default:
		text = fmt.Sprintf("Path: %s\nSize: %s\nModified: %s\n",
			mt.Path, report.FormatSize(mt.Size), report.FormatTime(mt.ModTime))
	}

	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg("Copied result to clipboard")
	}
}

// ignoreFile appends the selected path to .grepperignore so the next
// run skips it.
func (m Model) ignoreFile(mt types.Match) tea.Cmd {
	if isVirtualPath(mt.Path) {
		return func() tea.Msg {
			return statusMsg("Image entries cannot be ignored")
		}
	}

	file, err := os.OpenFile(".grepperignore", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Error opening .grepperignore: %v", err)) }
	}
	defer func() { _ = file.Close() }()

	if _, err := file.WriteString(mt.Path + "\n"); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Error writing to .grepperignore: %v", err)) }
	}

	return func() tea.Msg { return statusMsg(fmt.Sprintf("Added %s to .grepperignore", mt.Path)) }
}

// unignoreFile removes the selected path from .grepperignore.
func (m Model) unignoreFile(mt types.Match) tea.Cmd {
	content, err := os.ReadFile(".grepperignore")
	if err != nil {
		return func() tea.Msg { return statusMsg("No .grepperignore file found") }
	}

	lines := strings.Split(string(content), "\n")
	var kept []string
	removed := false
	for _, line := range lines {
		if strings.TrimSpace(line) == mt.Path {
			removed = true
			continue
		}
		kept = append(kept, line)
	}

	if !removed {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("%s not found in .grepperignore", mt.Path)) }
	}

	if err := os.WriteFile(".grepperignore", []byte(strings.Join(kept, "\n")), 0644); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Error writing .grepperignore: %v", err)) }
	}

	return func() tea.Msg { return statusMsg(fmt.Sprintf("Removed %s from .grepperignore", mt.Path)) }
}

func (m *Model) exportJSON() tea.Cmd {
	return m.exportResults("json")
}

func (m *Model) exportCSV() tea.Cmd {
	return m.exportResults("csv")
}

// exportResults writes the current view to a timestamped file in the
// working directory.
func (m *Model) exportResults(format string) tea.Cmd {
	display := m.displayMatches()
	if len(display) == 0 {
		return func() tea.Msg { return statusMsg("No results to export") }
	}

	timestamp := time.Now().Format("20060102-150405")
	var filename string
	var data []byte
	var err error

	switch format {
	case "json":
		filename = fmt.Sprintf("grepper-export-%s.json", timestamp)
		data, err = json.MarshalIndent(display, "", "  ")
	case "csv":
		filename = fmt.Sprintf("grepper-export-%s.csv", timestamp)
		var buf bytes.Buffer
		err = report.WriteCSV(&buf, display)
		data = buf.Bytes()
	default:
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Unknown format: %s", format)) }
	}

	if err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Export error: %v", err)) }
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Export error: %v", err)) }
	}

	count := len(display)
	return func() tea.Msg {
		return statusMsg(fmt.Sprintf("Exported %d results to %s", count, filename))
	}
}

type statusMsg string
