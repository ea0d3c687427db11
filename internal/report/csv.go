package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/atifafzal786/grepper/internal/types"
)

// WriteCSV exports results with the same headers and display values the
// on-screen table uses. The column set follows the result shape.
func WriteCSV(w io.Writer, matches []types.Match) error {
	sortMatches(matches)
	cw := csv.NewWriter(w)
	switch tableKind(matches) {
	case types.KindContent:
		if err := cw.Write([]string{"File Path", "Line", "Line Text"}); err != nil {
			return err
		}
		for _, m := range matches {
			if m.Kind != types.KindContent {
				continue
			}
			if err := cw.Write([]string{m.Path, strconv.Itoa(m.Line), m.Text}); err != nil {
				return err
			}
		}
	case types.KindFolder:
		if err := cw.Write([]string{"Folder Path", "Modified", "Matched", "Files"}); err != nil {
			return err
		}
		for _, m := range matches {
			if m.Kind != types.KindFolder {
				continue
			}
			if err := cw.Write([]string{m.Path, FormatTime(m.ModTime), MatchedMark(m.ContentHit), strconv.Itoa(m.FileCount)}); err != nil {
				return err
			}
		}
	default:
		if err := cw.Write([]string{"File Path", "Size", "Modified", "Matched"}); err != nil {
			return err
		}
		for _, m := range matches {
			if m.Kind != types.KindFile {
				continue
			}
			if err := cw.Write([]string{m.Path, FormatSize(m.Size), FormatTime(m.ModTime), MatchedMark(m.ContentHit)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
