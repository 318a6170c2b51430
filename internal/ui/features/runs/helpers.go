package runs

import (
	"fmt"
	"time"
)

func formatDurationMS(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	return fmt.Sprintf("%dm%ds", mins, int(secs)%60)
}

// formatRunDuration formats the time between start and end, or between start
// and now for a run still in progress.
func formatRunDuration(start time.Time, end *time.Time, now time.Time) string {
	if end != nil {
		now = *end
	}
	return formatDurationMS(now.Sub(start).Milliseconds())
}
