package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Prefs holds user preferences for the TUI that persist across sessions.
type Prefs struct {
	// ContextLines is the number of lines shown around a content match.
	ContextLines int `json:"context_lines"`

	// SortColumn and SortReverse restore the last sort order. The
	// column is ignored when it does not apply to the search mode.
	SortColumn  string `json:"sort_column"`
	SortReverse bool   `json:"sort_reverse"`
}

// DefaultPrefs returns the default preferences.
func DefaultPrefs() Prefs {
	return Prefs{
		ContextLines: 3,
	}
}

// prefsPath returns the path to the TUI preferences file.
func prefsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".grepper", "tui_prefs.json"), nil
}

// LoadPrefs loads user preferences from disk, returning defaults if not found.
func LoadPrefs() Prefs {
	prefs := DefaultPrefs()

	path, err := prefsPath()
	if err != nil {
		return prefs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prefs // File doesn't exist yet, use defaults
	}

	// Ignore unmarshal errors, just use defaults
	_ = json.Unmarshal(data, &prefs) //nolint:errcheck // Intentionally ignore: fall back to defaults
	return prefs
}

// SavePrefs persists user preferences to disk.
func SavePrefs(prefs Prefs) error {
	path, err := prefsPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// savePrefs is best effort; a failed write never interrupts the UI.
func (m Model) savePrefs() {
	_ = SavePrefs(Prefs{
		ContextLines: m.contextLines,
		SortColumn:   m.sortColumn,
		SortReverse:  m.sortReverse,
	})
}
