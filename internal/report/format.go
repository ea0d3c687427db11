package report

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count for display. Whole bytes stay integral,
// larger magnitudes get one decimal place.
func FormatSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024 {
			if unit == "B" {
				return fmt.Sprintf("%d B", n)
			}
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f PB", v)
}

// FormatTime renders a modification time down to the minute. The zero
// time means the stat failed, shown as N/A.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04")
}

// MatchedMark is the display value of the content-matched column.
func MatchedMark(hit bool) string {
	if hit {
		return "Y"
	}
	return "—"
}
