package tui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/atifafzal786/grepper/internal/backend"
	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/report"
	"github.com/atifafzal786/grepper/internal/types"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	detailPaneBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true).
			Padding(0, 1)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	emptyTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Align(lipgloss.Center)

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(1, 4)

	blameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	stateRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statePausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stateStoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// SearchStarter launches one search run. The TUI hands it a progress
// callback that the engine invokes once per candidate, so the status
// line can count files while the walk is still going.
type SearchStarter func(progress func()) (backend.Handle, error)

// matchBatchSize bounds how many results one message carries. The
// first read blocks, the rest drain whatever is already buffered.
const matchBatchSize = 256

type searchStartedMsg struct{ handle backend.Handle }

type searchFailedMsg struct{ err error }

type matchBatchMsg struct {
	matches []types.Match
	done    bool
}

type searchDoneMsg struct {
	stats engine.Stats
	err   error
}

// Model represents the main state of the TUI application.
type Model struct {
	table       table.Model
	viewport    viewport.Model
	spinner     spinner.Model
	searchInput textinput.Model

	mode       engine.Mode
	hasContent bool // a content pattern is set for this run
	start      SearchStarter

	handle      backend.Handle
	seen        *atomic.Int64 // candidates visited, updated from the engine goroutine
	searching   bool          // true while a run is in flight
	paused      bool          // true when result reads are suspended
	stopping    bool          // true after cancel, before the run winds down
	readPending bool          // a result read is already scheduled
	startTime   time.Time     // when the current run started
	lastRunTime time.Time     // when the previous run finished
	stats       engine.Stats  // final numbers from the last completed run
	searchErr   error
	doneOnce    bool // at least one run has completed

	matches         []types.Match // results in arrival order
	filteredMatches []types.Match // results after filter applied (nil = no filter)

	quitting bool
	ready    bool // terminal dimensions are known
	height   int
	width    int

	statusMessage string
	statusTimeout *time.Time // when to clear the status message

	// Search & Filter state
	searchMode  bool   // true when the filter input is active
	searchQuery string // current active filter query

	// Sort state
	sortColumn  string // current sort column ("" = arrival order)
	sortReverse bool

	// Context expansion state
	contextLines int // lines shown around a content match

	showHelp       bool
	showExportMenu bool
	pendingKey     string // for two key sequences like "gg"

	previewKey string // identity of the result the detail pane shows
}

// SortColumn constants
const (
	SortDefault  = ""
	SortPath     = "path"
	SortLine     = "line"
	SortSize     = "size"
	SortModified = "modified"
	SortFiles    = "files"
)

// NewModel initializes a new TUI model. A nil starter gives a static
// model that only browses whatever matches are loaded into it.
func NewModel(mode engine.Mode, hasContent bool, start SearchStarter) Model {
	t := table.New(
		table.WithColumns(modeColumns(mode)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Left)

	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true).
		Padding(0, 1)

	s.Cell = lipgloss.NewStyle().
		Padding(0, 1)

	t.SetStyles(s)

	// Line spinner avoids Braille characters that render poorly on some terminals
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ti := textinput.New()
	ti.Placeholder = "Filter by path or matched text..."
	ti.CharLimit = 100
	ti.Width = 50
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	m := Model{
		table:        t,
		spinner:      sp,
		searchInput:  ti,
		mode:         mode,
		hasContent:   hasContent,
		start:        start,
		seen:         new(atomic.Int64),
		contextLines: 3,
	}

	p := LoadPrefs()
	if p.ContextLines > 0 {
		m.contextLines = p.ContextLines
	}
	for _, col := range sortKeysFor(mode) {
		if col != SortDefault && col == p.SortColumn {
			m.sortColumn = p.SortColumn
			m.sortReverse = p.SortReverse
		}
	}

	if start != nil {
		m.statusMessage = "q: quit | ?: help | p: pause | x: stop | j/k: navigate"
	} else {
		m.statusMessage = "q: quit | ?: help | j/k: navigate | o: open | e: export"
	}

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.start != nil {
		cmds = append(cmds, startSearch(m.start, m.progressFunc()))
	}
	return tea.Batch(cmds...)
}

// progressFunc returns the callback handed to the engine. It closes
// over the shared counter, not the model, so copies of the model all
// observe the same count.
func (m Model) progressFunc() func() {
	seen := m.seen
	return func() {
		seen.Add(1)
	}
}

func startSearch(start SearchStarter, progress func()) tea.Cmd {
	return func() tea.Msg {
		h, err := start(progress)
		if err != nil {
			return searchFailedMsg{err: err}
		}
		return searchStartedMsg{handle: h}
	}
}

// readMatches pulls the next batch off the result stream. The first
// receive blocks until the engine produces something; after that it
// drains without blocking so one message carries a whole burst.
func readMatches(h backend.Handle) tea.Cmd {
	return func() tea.Msg {
		first, ok := <-h.Results()
		if !ok {
			return matchBatchMsg{done: true}
		}
		batch := []types.Match{first}
		for len(batch) < matchBatchSize {
			select {
			case mt, ok := <-h.Results():
				if !ok {
					return matchBatchMsg{matches: batch, done: true}
				}
				batch = append(batch, mt)
			default:
				return matchBatchMsg{matches: batch}
			}
		}
		return matchBatchMsg{matches: batch}
	}
}

func finishSearch(h backend.Handle) tea.Cmd {
	return func() tea.Msg {
		stats, err := h.Wait()
		return searchDoneMsg{stats: stats, err: err}
	}
}

// acceptMatches folds a batch into the result list. In text mode with
// a content pattern the stream carries a file row ahead of each file's
// line rows; the table only wants the lines.
func (m *Model) acceptMatches(batch []types.Match) {
	if m.mode == engine.ModeText && m.hasContent {
		for _, mt := range batch {
			if mt.Kind == types.KindContent {
				m.matches = append(m.matches, mt)
			}
		}
	} else {
		m.matches = append(m.matches, batch...)
	}
	m.applyFilters()
	m.updatePreview()
}

func modeColumns(mode engine.Mode) []table.Column {
	switch mode {
	case engine.ModeFiles:
		return []table.Column{
			{Title: "Path", Width: 50},
			{Title: "Size", Width: 10},
			{Title: "Modified", Width: 17},
			{Title: "Matched", Width: 7},
		}
	case engine.ModeFolders:
		return []table.Column{
			{Title: "Folder", Width: 45},
			{Title: "Modified", Width: 17},
			{Title: "Matched", Width: 7},
			{Title: "Files", Width: 7},
		}
	default:
		return []table.Column{
			{Title: "Path", Width: 40},
			{Title: "Line", Width: 6},
			{Title: "Text", Width: 50},
		}
	}
}

func (m *Model) layoutColumns() {
	usable := m.width - 10
	cols := m.table.Columns()
	switch m.mode {
	case engine.ModeFiles:
		sizeWidth, modWidth, markWidth := 10, 17, 7
		pathWidth := usable - sizeWidth - modWidth - markWidth
		if pathWidth < 25 {
			pathWidth = 25
		}
		cols[0].Width = pathWidth
		cols[1].Width = sizeWidth
		cols[2].Width = modWidth
		cols[3].Width = markWidth
	case engine.ModeFolders:
		modWidth, markWidth, filesWidth := 17, 7, 7
		pathWidth := usable - modWidth - markWidth - filesWidth
		if pathWidth < 25 {
			pathWidth = 25
		}
		cols[0].Width = pathWidth
		cols[1].Width = modWidth
		cols[2].Width = markWidth
		cols[3].Width = filesWidth
	default:
		lineWidth := 6
		remaining := usable - lineWidth
		pathWidth := int(float64(remaining) * 0.45)
		textWidth := remaining - pathWidth
		if pathWidth < 25 {
			pathWidth = 25
		}
		if textWidth < 25 {
			textWidth = 25
		}
		cols[0].Width = pathWidth
		cols[1].Width = lineWidth
		cols[2].Width = textWidth
	}
	m.table.SetColumns(cols)
}

func (m Model) rowFor(mt types.Match) table.Row {
	switch m.mode {
	case engine.ModeFiles:
		return table.Row{
			mt.Path,
			report.FormatSize(mt.Size),
			report.FormatTime(mt.ModTime),
			report.MatchedMark(mt.ContentHit),
		}
	case engine.ModeFolders:
		return table.Row{
			mt.Path,
			report.FormatTime(mt.ModTime),
			report.MatchedMark(mt.ContentHit),
			strconv.Itoa(mt.FileCount),
		}
	default:
		line := ""
		if mt.Kind == types.KindContent {
			line = strconv.Itoa(mt.Line)
		}
		return table.Row{mt.Path, line, mt.Text}
	}
}

// applyFilters recomputes the filtered view and rebuilds table rows.
func (m *Model) applyFilters() {
	if m.searchQuery == "" {
		m.filteredMatches = nil
		m.rebuildTableRows()
		return
	}

	query := strings.ToLower(m.searchQuery)
	filtered := []types.Match{}
	for _, mt := range m.matches {
		if strings.Contains(strings.ToLower(mt.Path), query) ||
			strings.Contains(strings.ToLower(mt.Text), query) {
			filtered = append(filtered, mt)
		}
	}
	m.filteredMatches = filtered
	m.rebuildTableRows()
}

// displayMatches returns the result set currently shown, filter and
// sort applied.
func (m Model) displayMatches() []types.Match {
	src := m.matches
	if m.searchQuery != "" {
		src = m.filteredMatches
	}
	if m.sortColumn == SortDefault && !m.sortReverse {
		return src
	}
	out := make([]types.Match, len(src))
	copy(out, src)
	m.sortMatchSlice(out)
	return out
}

func (m Model) selectedMatch() (types.Match, bool) {
	display := m.displayMatches()
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(display) {
		return types.Match{}, false
	}
	return display[cursor], true
}

func (m *Model) rebuildTableRows() {
	display := m.displayMatches()
	rows := make([]table.Row, len(display))
	for i, mt := range display {
		rows[i] = m.rowFor(mt)
	}
	m.table.SetRows(rows)
	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// sortKeysFor lists the sort cycle per mode; the leading empty string
// is arrival order.
func sortKeysFor(mode engine.Mode) []string {
	switch mode {
	case engine.ModeFiles:
		return []string{SortDefault, SortPath, SortSize, SortModified}
	case engine.ModeFolders:
		return []string{SortDefault, SortPath, SortFiles, SortModified}
	default:
		return []string{SortDefault, SortPath, SortLine}
	}
}

func (m Model) nextSortColumn() string {
	keys := sortKeysFor(m.mode)
	for i, col := range keys {
		if col == m.sortColumn {
			return keys[(i+1)%len(keys)]
		}
	}
	return SortDefault
}

func (m Model) sortMatchSlice(s []types.Match) {
	byPath := func(a, b types.Match) bool {
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	}
	less := byPath
	switch m.sortColumn {
	case SortLine:
		less = func(a, b types.Match) bool {
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Path < b.Path
		}
	case SortSize:
		less = func(a, b types.Match) bool {
			if a.Size != b.Size {
				return a.Size < b.Size
			}
			return a.Path < b.Path
		}
	case SortModified:
		less = func(a, b types.Match) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
			return a.Path < b.Path
		}
	case SortFiles:
		less = func(a, b types.Match) bool {
			if a.FileCount != b.FileCount {
				return a.FileCount < b.FileCount
			}
			return a.Path < b.Path
		}
	}
	sort.SliceStable(s, func(i, j int) bool {
		if m.sortReverse {
			return less(s[j], s[i])
		}
		return less(s[i], s[j])
	})
}

func (m Model) sortIndicator() string {
	if m.sortColumn == SortDefault {
		return ""
	}
	direction := "asc"
	if m.sortReverse {
		direction = "desc"
	}
	return fmt.Sprintf("  [sort: %s %s]", m.sortColumn, direction)
}

// Status line labels follow the search mode: folder searches count
// folders, everything else counts files.
func (m Model) scanLabel() string {
	if m.mode == engine.ModeFolders {
		return "Folders"
	}
	return "Files"
}

func (m Model) matchLabel() string {
	switch m.mode {
	case engine.ModeFiles:
		return "Files matched"
	case engine.ModeFolders:
		return "Folders matched"
	default:
		return "Matches"
	}
}

func (m Model) rateLabel() string {
	if m.mode == engine.ModeFolders {
		return "folders/s"
	}
	return "files/s"
}

func (m Model) stateWord() string {
	switch {
	case m.stopping:
		return statePausedStyle.Render("Stopping")
	case m.searching && m.paused:
		return statePausedStyle.Render("Paused")
	case m.searching:
		return stateRunningStyle.Render("Running")
	case m.searchErr != nil && errors.Is(m.searchErr, context.Canceled):
		return stateStoppedStyle.Render("Stopped")
	case m.searchErr != nil:
		return stateStoppedStyle.Render("Error")
	case m.doneOnce:
		return stateRunningStyle.Render("Done")
	default:
		return "Idle"
	}
}

func (m *Model) setStatus(s string) {
	timeout := time.Now().Add(3 * time.Second)
	m.statusTimeout = &timeout
	m.statusMessage = s
}

func (m Model) defaultStatus() string {
	if m.searching {
		return "q: quit | ?: help | p: pause | x: stop | j/k: navigate"
	}
	if len(m.matches) == 0 {
		return "q: quit | r: search again | ?: help"
	}
	return "q: quit | ?: help | j/k: navigate | o: open | y: copy | e: export | r: search again"
}

// updatePreview rewrites the detail pane for the selected result. It
// is a no-op while the selection is unchanged, so result batches
// streaming in do not re-read the previewed file every time.
func (m *Model) updatePreview() {
	if m.viewport.Height == 0 {
		return
	}
	mt, ok := m.selectedMatch()
	if !ok {
		m.previewKey = ""
		m.viewport.SetContent("")
		return
	}
	key := fmt.Sprintf("%s|%s|%d", mt.Kind, mt.Path, mt.Line)
	if key == m.previewKey {
		return
	}
	m.previewKey = key

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s\n\n", titleStyle.Render("Result Details")))

	switch mt.Kind {
	case types.KindContent:
		m.writeContentDetails(&b, mt)
	case types.KindFolder:
		m.writeFolderDetails(&b, mt)
	default:
		m.writeFileDetails(&b, mt)
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func (m Model) writeContentDetails(b *strings.Builder, mt types.Match) {
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Path:"), mt.Path))
	b.WriteString(fmt.Sprintf("%s %d\n", keyStyle.Render("Line:"), mt.Line))
	if mt.SpanEnd > mt.SpanStart {
		b.WriteString(fmt.Sprintf("%s %d\n", keyStyle.Render("Column:"), mt.SpanStart+1))
	}
	if blame := getGitBlame(mt.Path, mt.Line); blame != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			keyStyle.Render("Commit:"),
			blameStyle.Render(fmt.Sprintf("%s %s %s", blame.Commit, blame.Author, blame.Date))))
	}

	contextHint := fmt.Sprintf(" (+/- to expand/contract, showing %d lines)", m.contextLines*2+1)
	b.WriteString(fmt.Sprintf("\n%s%s\n",
		keyStyle.Render("Context:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(contextHint)))

	span := spanText(mt)
	lines, startLine, err := readFileContext(mt.Path, mt.Line, m.contextLines)
	if err == nil && len(lines) > 0 {
		lineNumStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		highlightLineStyle := lipgloss.NewStyle().Background(lipgloss.Color("236"))

		for i, line := range lines {
			lineNum := startLine + i
			lineNumStr := lineNumStyle.Render(fmt.Sprintf("%4d ", lineNum))
			highlightedLine := highlightLine(line, mt.Path)

			if lineNum == mt.Line {
				if span != "" {
					highlightedLine = strings.ReplaceAll(highlightedLine, span, matchStyle.Render(span))
				}
				b.WriteString(lineNumStr + highlightLineStyle.Render(highlightedLine) + "\n")
			} else {
				b.WriteString(lineNumStr + highlightedLine + "\n")
			}
		}
		return
	}

	// Image entries and unreadable files fall back to the matched
	// line carried on the result itself.
	text := highlightCode(mt.Text, previewName(mt.Path))
	if span != "" {
		text = strings.ReplaceAll(text, span, matchStyle.Render(span))
	}
	b.WriteString(text + "\n")
}

func (m Model) writeFileDetails(b *strings.Builder, mt types.Match) {
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Path:"), mt.Path))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Size:"), report.FormatSize(mt.Size)))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Modified:"), report.FormatTime(mt.ModTime)))
	if m.hasContent {
		b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Matched:"), report.MatchedMark(mt.ContentHit)))
	}

	b.WriteString(fmt.Sprintf("\n%s\n", keyStyle.Render("Contents:")))
	lines, err := readFileHead(mt.Path, 40)
	if err != nil {
		b.WriteString(fmt.Sprintf("(unavailable: %v)\n", err))
		return
	}
	if len(lines) == 0 {
		b.WriteString("(empty file)\n")
		return
	}
	b.WriteString(highlightCode(strings.Join(lines, "\n"), previewName(mt.Path)) + "\n")
}

func (m Model) writeFolderDetails(b *strings.Builder, mt types.Match) {
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Path:"), mt.Path))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Modified:"), report.FormatTime(mt.ModTime)))
	b.WriteString(fmt.Sprintf("%s %d\n", keyStyle.Render("Files:"), mt.FileCount))
	if m.hasContent {
		b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Matched:"), report.MatchedMark(mt.ContentHit)))
	}

	b.WriteString(fmt.Sprintf("\n%s\n", keyStyle.Render("Contents:")))
	lines, err := readFolderListing(mt.Path, 40)
	if err != nil {
		b.WriteString(fmt.Sprintf("(unavailable: %v)\n", err))
		return
	}
	if len(lines) == 0 {
		b.WriteString("(empty folder)\n")
		return
	}
	for _, line := range lines {
		b.WriteString("  " + line + "\n")
	}
}

// previewName strips any image ref prefix so the lexer sees the inner
// file name.
func previewName(path string) string {
	if strings.Contains(path, "::") {
		parts := strings.Split(path, "::")
		return parts[len(parts)-1]
	}
	return path
}

func spanText(mt types.Match) string {
	if mt.SpanEnd <= mt.SpanStart || mt.SpanEnd > len(mt.Text) {
		return ""
	}
	return mt.Text[mt.SpanStart:mt.SpanEnd]
}

func readFileContext(path string, targetLine, contextLines int) ([]string, int, error) {
	if strings.Contains(path, "::") {
		return nil, 0, fmt.Errorf("virtual path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	startLine := targetLine - contextLines
	if startLine < 1 {
		startLine = 1
	}
	endLine := targetLine + contextLines

	var lines []string
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines, startLine, scanner.Err()
}

func readFileHead(path string, maxLines int) ([]string, error) {
	if strings.Contains(path, "::") {
		return nil, fmt.Errorf("virtual path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= maxLines {
			return lines, nil
		}
	}
	return lines, scanner.Err()
}

// readFolderListing lists direct children, folders first.
func readFolderListing(path string, max int) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var lines []string
	for _, e := range entries {
		if len(lines) >= max {
			lines = append(lines, fmt.Sprintf("... and %d more", len(entries)-max))
			break
		}
		if e.IsDir() {
			lines = append(lines, e.Name()+"/")
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		lines = append(lines, fmt.Sprintf("%s  (%s)", e.Name(), report.FormatSize(size)))
	}
	return lines, nil
}

type BlameInfo struct {
	Author string
	Date   string
	Commit string
}

func getGitBlame(path string, line int) *BlameInfo {
	if strings.Contains(path, "::") {
		return nil
	}

	cmd := fmt.Sprintf("git blame -L %d,%d --porcelain -- %q 2>/dev/null", line, line, path)
	out, err := runCommand(cmd)
	if err != nil || out == "" {
		return nil
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return nil
	}

	info := &BlameInfo{}

	parts := strings.Fields(lines[0])
	if len(parts) > 0 && len(parts[0]) >= 8 {
		info.Commit = parts[0][:8]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "author ") {
			info.Author = strings.TrimPrefix(line, "author ")
		} else if strings.HasPrefix(line, "author-time ") {
			timeStr := strings.TrimPrefix(line, "author-time ")
			if ts, err := parseUnixTimestamp(timeStr); err == nil {
				info.Date = ts.Format("2006-01-02")
			}
		}
	}

	return info
}

func runCommand(cmd string) (string, error) {
	out, err := execCommand("sh", "-c", cmd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var execCommand = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func parseUnixTimestamp(s string) (time.Time, error) {
	var ts int64
	if _, err := fmt.Sscanf(s, "%d", &ts); err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

func highlightCode(code string, filename string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	err = formatter.Format(&buf, style, iterator)
	if err != nil {
		return code
	}

	return buf.String()
}

func highlightLine(line string, filename string) string {
	lexer := lexers.Match(previewName(filename))
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		return line // No highlighting for unknown file types
	}

	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}

	return buf.String()
}

// navKeys are handled explicitly in Update; the table must not see
// them again or the cursor moves twice.
var navKeys = map[string]bool{
	"j": true, "down": true, "k": true, "up": true,
	"ctrl+d": true, "ctrl+u": true, "ctrl+f": true, "ctrl+b": true,
	"pgup": true, "pgdown": true,
	"g": true, "G": true, "home": true, "end": true,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searchMode {
			switch msg.String() {
			case "enter":
				m.searchMode = false
				m.searchInput.Blur()
				m.searchQuery = m.searchInput.Value()
				m.applyFilters()
				return m, nil
			case "esc":
				m.searchMode = false
				m.searchInput.Blur()
				m.searchInput.SetValue("")
				m.searchQuery = ""
				m.applyFilters()
				return m, nil
			default:
				m.searchInput, cmd = m.searchInput.Update(msg)
				m.searchQuery = m.searchInput.Value()
				m.applyFilters()
				return m, cmd
			}
		}

		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		if m.showExportMenu {
			switch msg.String() {
			case "1", "j":
				m.showExportMenu = false
				return m, m.exportJSON()
			case "2", "c":
				m.showExportMenu = false
				return m, m.exportCSV()
			case "esc", "q", "e":
				m.showExportMenu = false
			}
			return m, nil
		}

		if m.pendingKey == "g" {
			m.pendingKey = ""
			if msg.String() == "g" {
				m.table.GotoTop()
				m.updatePreview()
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.searching && m.handle != nil {
				m.handle.Cancel()
			}
			m.quitting = true
			return m, tea.Quit

		case "esc":
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.searchInput.SetValue("")
				m.applyFilters()
				m.updatePreview()
			}
			return m, nil

		case "/":
			m.searchMode = true
			m.searchInput.Focus()
			return m, textinput.Blink

		case "j", "down":
			m.table.MoveDown(1)
		case "k", "up":
			m.table.MoveUp(1)
		case "ctrl+d":
			m.table.MoveDown(m.table.Height() / 2)
		case "ctrl+u":
			m.table.MoveUp(m.table.Height() / 2)
		case "ctrl+f", "pgdown":
			m.table.MoveDown(m.table.Height())
		case "ctrl+b", "pgup":
			m.table.MoveUp(m.table.Height())
		case "g":
			m.pendingKey = "g"
			return m, nil
		case "G", "end":
			m.table.GotoBottom()
		case "home":
			m.table.GotoTop()

		case "enter", "o":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.openEditor(mt)
			}
			return m, nil

		case "O":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.openFolder(mt)
			}
			return m, nil

		case "y":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.copyPath(mt)
			}
			return m, nil

		case "Y":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.copyMatch(mt)
			}
			return m, nil

		case "i":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.ignoreFile(mt)
			}
			return m, nil

		case "I":
			if mt, ok := m.selectedMatch(); ok {
				return m, m.unignoreFile(mt)
			}
			return m, nil

		case "s":
			m.sortColumn = m.nextSortColumn()
			m.rebuildTableRows()
			m.updatePreview()
			m.savePrefs()
			if m.sortColumn == SortDefault {
				m.setStatus("Sort: arrival order")
			} else {
				m.setStatus(fmt.Sprintf("Sort: %s", m.sortColumn))
			}
			return m, nil

		case "S":
			m.sortReverse = !m.sortReverse
			m.rebuildTableRows()
			m.updatePreview()
			m.savePrefs()
			if m.sortReverse {
				m.setStatus("Sort reversed")
			} else {
				m.setStatus("Sort forward")
			}
			return m, nil

		case "+", "=":
			if m.contextLines < 10 {
				m.contextLines++
				m.previewKey = ""
				m.updatePreview()
				m.savePrefs()
			}
			return m, nil

		case "-", "_":
			if m.contextLines > 0 {
				m.contextLines--
				m.previewKey = ""
				m.updatePreview()
				m.savePrefs()
			}
			return m, nil

		case "e":
			if len(m.displayMatches()) == 0 {
				m.setStatus("Nothing to export")
				return m, nil
			}
			m.showExportMenu = true
			return m, nil

		case "p":
			if !m.searching {
				return m, nil
			}
			if m.paused {
				m.paused = false
				m.setStatus("Resumed")
				if !m.readPending && m.handle != nil {
					m.readPending = true
					return m, readMatches(m.handle)
				}
				return m, nil
			}
			m.paused = true
			m.setStatus("Paused")
			return m, nil

		case "x":
			if m.searching && m.handle != nil && !m.stopping {
				m.stopping = true
				m.handle.Cancel()
				m.setStatus("Stopping")
				if m.paused {
					m.paused = false
					if !m.readPending {
						m.readPending = true
						return m, readMatches(m.handle)
					}
				}
			}
			return m, nil

		case "r":
			if m.searching {
				m.setStatus("Search already running")
				return m, nil
			}
			if m.start == nil {
				m.setStatus("Rerun not available")
				return m, nil
			}
			m.matches = nil
			m.filteredMatches = nil
			m.stats = engine.Stats{}
			m.searchErr = nil
			m.seen.Store(0)
			m.applyFilters()
			m.updatePreview()
			m.setStatus("Searching again")
			return m, startSearch(m.start, m.progressFunc())

		case "?":
			m.showHelp = true
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.layoutColumns()

		statsHeaderHeight := 1
		availableHeight := m.height - lipgloss.Height(statusStyle.Render("")) - statsHeaderHeight
		tableHeight := int(float64(availableHeight) * 0.45)
		viewportHeight := availableHeight - tableHeight - detailPaneBorderStyle.GetVerticalFrameSize() - 1

		m.table.SetWidth(m.width)
		m.table.SetHeight(tableHeight)

		if m.viewport.Height == 0 {
			m.viewport = viewport.New(m.width, viewportHeight)
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updatePreview()
		statusStyle = statusStyle.Width(m.width)

	case searchStartedMsg:
		m.handle = msg.handle
		m.searching = true
		m.stopping = false
		m.paused = false
		m.startTime = time.Now()
		m.readPending = true
		return m, readMatches(m.handle)

	case searchFailedMsg:
		m.searching = false
		m.searchErr = msg.err
		m.setStatus(fmt.Sprintf("Search error: %v", msg.err))

	case matchBatchMsg:
		m.readPending = false
		if len(msg.matches) > 0 {
			m.acceptMatches(msg.matches)
		}
		if msg.done {
			return m, finishSearch(m.handle)
		}
		if m.paused {
			return m, nil
		}
		m.readPending = true
		return m, readMatches(m.handle)

	case searchDoneMsg:
		m.searching = false
		m.stopping = false
		m.paused = false
		m.readPending = false
		m.doneOnce = true
		m.lastRunTime = time.Now()
		m.stats = msg.stats
		m.searchErr = msg.err
		switch {
		case msg.err != nil && errors.Is(msg.err, context.Canceled):
			m.setStatus(fmt.Sprintf("Stopped with %d results", len(m.matches)))
		case msg.err != nil:
			m.setStatus(fmt.Sprintf("Search error: %v", msg.err))
		default:
			m.setStatus(fmt.Sprintf("Done: %d results in %.1fs", len(m.matches), msg.stats.Duration.Seconds()))
		}

	case statusMsg:
		timeout := time.Now().Add(3 * time.Second)
		m.statusTimeout = &timeout
		m.statusMessage = string(msg)

	case spinner.TickMsg:
		var spinCmd tea.Cmd
		m.spinner, spinCmd = m.spinner.Update(msg)
		if m.statusTimeout != nil && time.Now().After(*m.statusTimeout) {
			m.statusTimeout = nil
			m.statusMessage = m.defaultStatus()
		}
		return m, spinCmd
	}

	if !m.quitting {
		shouldUpdate := true
		if keyMsg, ok := msg.(tea.KeyMsg); ok && navKeys[keyMsg.String()] {
			shouldUpdate = false
		}
		if shouldUpdate {
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.updatePreview()
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	displayMatches := m.displayMatches()

	elapsed := m.stats.Duration
	seen := m.stats.Seen
	if m.searching {
		elapsed = time.Since(m.startTime)
		seen = int(m.seen.Load())
	}
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(seen) / secs
	}

	statsContent := fmt.Sprintf("Status: %s  |  %s: %d  |  %s: %d  |  Elapsed: %.1fs  |  %.1f %s",
		m.stateWord(),
		m.scanLabel(), seen,
		m.matchLabel(), len(m.matches),
		elapsed.Seconds(),
		rate, m.rateLabel(),
	)
	if m.searching {
		statsContent = m.spinner.View() + " " + statsContent
	}
	if m.searchQuery != "" {
		statsContent += fmt.Sprintf("  [FILTER: '%s'  %d/%d]", m.searchQuery, len(displayMatches), len(m.matches))
	}
	statsContent += m.sortIndicator()

	statsHeader := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("237")).
		Render(statsContent)

	tableRender := tableBorderStyle.
		Width(m.width).
		Height(m.table.Height()).
		Render(m.table.View())

	var detailContent string
	if len(displayMatches) == 0 {
		var emptyMsg string
		switch {
		case m.searching:
			emptyMsg = "No results yet.\n\nSearch is running"
		case m.searchQuery != "":
			emptyMsg = "No results match filter.\n\nPress 'Esc' to clear filter"
		default:
			emptyMsg = "No matches found.\n\nPress 'r' to search again\nPress '?' for help"
		}
		detailContent = lipgloss.Place(
			m.width,
			m.viewport.Height,
			lipgloss.Center,
			lipgloss.Center,
			emptyTextStyle.Render(emptyMsg),
		)
	} else {
		detailContent = m.viewport.View()
	}

	detailRender := detailPaneBorderStyle.
		Width(m.width).
		Height(m.viewport.Height).
		Render(detailContent)

	var timeInfo string
	if m.doneOnce && !m.searching && !m.lastRunTime.IsZero() {
		timeInfo = fmt.Sprintf("Searched: %s ago", formatDuration(time.Since(m.lastRunTime)))
	}

	statusLeft := m.statusMessage
	statusRight := timeInfo
	leftWidth := lipgloss.Width(statusLeft)
	rightWidth := lipgloss.Width(statusRight)
	availWidth := m.width - 4
	spacer := availWidth - leftWidth - rightWidth
	if spacer < 1 {
		spacer = 1
	}

	var statusContent string
	if timeInfo != "" {
		statusContent = statusLeft + strings.Repeat(" ", spacer) + statusRight
	} else {
		statusContent = statusLeft
	}

	statusRender := statusStyle.
		Width(m.width).
		Padding(0, 2).
		Render(statusContent)

	var bottomBar string
	if m.searchMode {
		searchStatus := fmt.Sprintf(" (%d results)", len(displayMatches))
		searchBarStyle := lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("15")).
			Width(m.width).
			Padding(0, 1)
		bottomBar = searchBarStyle.Render(m.searchInput.View() + searchStatus)
	} else {
		bottomBar = statusRender
	}

	mainView := lipgloss.JoinVertical(lipgloss.Left,
		statsHeader,
		tableRender,
		detailRender,
		bottomBar,
	)

	if m.showHelp {
		return m.helpOverlay()
	}

	if m.showExportMenu {
		return m.exportOverlay(len(displayMatches))
	}

	return mainView
}

func (m Model) helpOverlay() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyColor := lipgloss.Color("10")
	descColor := lipgloss.Color("250")

	formatRow := func(key, desc string) string {
		keyStyled := lipgloss.NewStyle().Foreground(keyColor).Render(key)
		descStyled := lipgloss.NewStyle().Foreground(descColor).Render(desc)
		padding := 12 - len(key)
		if padding < 1 {
			padding = 1
		}
		return "  " + keyStyled + strings.Repeat(" ", padding) + descStyled
	}

	var lines []string
	lines = append(lines, titleStyle.Render("Keyboard Shortcuts"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Navigation"))
	lines = append(lines, formatRow("j / k", "Move down / up"))
	lines = append(lines, formatRow("Ctrl+d/u", "Half-page down / up"))
	lines = append(lines, formatRow("Ctrl+f/b", "Full page down / up"))
	lines = append(lines, formatRow("gg / G", "First / last row"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Search Control"))
	lines = append(lines, formatRow("p", "Pause / resume stream"))
	lines = append(lines, formatRow("x", "Stop the search"))
	lines = append(lines, formatRow("r", "Search again"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Filter & Sort"))
	lines = append(lines, formatRow("/", "Filter results"))
	lines = append(lines, formatRow("s / S", "Sort / reverse sort"))
	lines = append(lines, formatRow("Esc", "Clear filter"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Export & Copy"))
	lines = append(lines, formatRow("e", "Export (JSON/CSV)"))
	lines = append(lines, formatRow("y / Y", "Copy path / matched line"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Context"))
	lines = append(lines, formatRow("+ / -", "Expand / contract context"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Actions"))
	lines = append(lines, formatRow("Enter / o", "Open in $EDITOR"))
	lines = append(lines, formatRow("O", "Open containing folder"))
	lines = append(lines, formatRow("i / I", "Ignore / unignore path"))
	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Other"))
	lines = append(lines, formatRow("?", "Toggle help"))
	lines = append(lines, formatRow("q", "Quit"))
	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true).
		Render("Press any key to close"))

	helpContent := lipgloss.JoinVertical(lipgloss.Left, lines...)
	helpBox := popupStyle.Width(44).Padding(1, 3).Render(helpContent)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpBox)
}

func (m Model) exportOverlay(count int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))

	keyColor := lipgloss.Color("10")
	descColor := lipgloss.Color("250")

	var lines []string
	lines = append(lines, titleStyle.Render("Export Results"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  %s  JSON  (machine readable)",
		lipgloss.NewStyle().Foreground(keyColor).Bold(true).Render("1/j")))
	lines = append(lines, fmt.Sprintf("  %s  CSV   (spreadsheet)",
		lipgloss.NewStyle().Foreground(keyColor).Bold(true).Render("2/c")))
	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().
		Foreground(descColor).
		Italic(true).
		Render(fmt.Sprintf("Exporting %d results", count)))
	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true).
		Render("Esc to cancel"))

	exportContent := lipgloss.JoinVertical(lipgloss.Left, lines...)
	exportBox := popupStyle.
		Width(40).
		Padding(1, 3).
		Render(exportContent)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, exportBox)
}
