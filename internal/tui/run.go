package tui

import (
	"fmt"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and kicks off a live search through start.
// Results stream into the table while the walk is still going.
func Run(mode engine.Mode, hasContent bool, start SearchStarter) error {
	m := NewModel(mode, hasContent, start)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// RunStatic starts the TUI over an already collected result set, for
// example results loaded from an export. Rerun is unavailable.
func RunStatic(mode engine.Mode, hasContent bool, matches []types.Match) error {
	m := NewModel(mode, hasContent, nil)
	m.matches = matches
	m.doneOnce = true
	m.applyFilters()
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
