package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/atifafzal786/grepper/internal/types"
)

// PrintOptions control coloring and the summary footer shared by the
// renderers. Zero counters suppress their footer lines.
type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesSeen    int
	FilesScanned int
	Skipped      int
}

// PrintText writes pipe-friendly output: bare paths for file and folder
// rows, path:line: text for content rows with the matched span colored.
func PrintText(w io.Writer, matches []types.Match, opts PrintOptions) {
	sortMatches(matches)
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
	}
	for _, m := range matches {
		switch m.Kind {
		case types.KindContent:
			fmt.Fprintf(w, "%s:%d: %s\n", m.Path, m.Line, highlightSpan(m, opts.NoColor))
		case types.KindFolder:
			fmt.Fprintf(w, "%s/\n", m.Path)
		default:
			fmt.Fprintln(w, colorPath(m.Path, opts.NoColor))
		}
	}
	printFooter(w, len(matches), opts)
}

// PrintTable writes a bordered table whose columns follow the result
// shape: content hits, file listings, or folder listings.
func PrintTable(w io.Writer, matches []types.Match, opts PrintOptions) {
	sortMatches(matches)
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		printFooter(w, 0, opts)
		return
	}

	tbl := tablewriter.NewTable(w)
	rows := 0
	switch tableKind(matches) {
	case types.KindContent:
		width := textColumnWidth(w)
		tbl.Header([]string{"File Path", "Line", "Line Text"})
		for _, m := range matches {
			if m.Kind != types.KindContent {
				continue
			}
			tbl.Append([]string{m.Path, strconv.Itoa(m.Line), truncate(m.Text, width)})
			rows++
		}
	case types.KindFolder:
		tbl.Header([]string{"Folder Path", "Modified", "Matched", "Files"})
		for _, m := range matches {
			if m.Kind != types.KindFolder {
				continue
			}
			tbl.Append([]string{m.Path, FormatTime(m.ModTime), MatchedMark(m.ContentHit), strconv.Itoa(m.FileCount)})
			rows++
		}
	default:
		tbl.Header([]string{"File Path", "Size", "Modified", "Matched"})
		for _, m := range matches {
			if m.Kind != types.KindFile {
				continue
			}
			tbl.Append([]string{m.Path, FormatSize(m.Size), FormatTime(m.ModTime), MatchedMark(m.ContentHit)})
			rows++
		}
	}
	_ = tbl.Render()
	printFooter(w, rows, opts)
}

// sortMatches orders results by path then line. File and folder rows carry
// line 0, so a file row sorts ahead of its own content lines.
func sortMatches(matches []types.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Path == matches[j].Path {
			return matches[i].Line < matches[j].Line
		}
		return matches[i].Path < matches[j].Path
	})
}

// tableKind picks the column set: any content row wins, then folders.
func tableKind(matches []types.Match) types.Kind {
	kind := types.KindFile
	for _, m := range matches {
		switch m.Kind {
		case types.KindContent:
			return types.KindContent
		case types.KindFolder:
			kind = types.KindFolder
		}
	}
	return kind
}

func printFooter(w io.Writer, n int, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesSeen <= 0 && opts.FilesScanned <= 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Matches: %d\n", n)
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Search duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesSeen > 0 {
		fmt.Fprintf(w, "Files seen: %d\n", opts.FilesSeen)
	}
	if opts.FilesScanned > 0 {
		fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
	}
	if opts.Skipped > 0 {
		fmt.Fprintf(w, "Files skipped: %d\n", opts.Skipped)
	}
}

// highlightSpan colors the matched byte range of a content line.
func highlightSpan(m types.Match, noColor bool) string {
	if noColor || m.SpanEnd <= m.SpanStart || m.SpanEnd > len(m.Text) {
		return m.Text
	}
	return m.Text[:m.SpanStart] + "\x1b[31m" + m.Text[m.SpanStart:m.SpanEnd] + "\x1b[0m" + m.Text[m.SpanEnd:]
}

func colorPath(p string, noColor bool) string {
	if noColor {
		return p
	}
	return "\x1b[35m" + p + "\x1b[0m"
}

// textColumnWidth bounds the line-text column so a long match does not
// wrap the whole table. Off-terminal output keeps a generous fixed cap.
func textColumnWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 40 {
			return cols - 30
		}
	}
	return 160
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
