package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration renders d as "850ms", "1.5s" or "2m5.5s".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	return fmt.Sprintf("%dm%.1fs", mins, secs-float64(mins*60))
}

// FormatBytes renders n in binary units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatAge renders t relative to now, e.g. "3 minutes ago".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
