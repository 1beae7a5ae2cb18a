package transcript

import "time"

// clockLayout renders a local wall-clock instant with millisecond
// precision, locale-independent.
const clockLayout = "15:04:05.000"

// FormatClock formats t as HH:MM:SS.mmm in local time.
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}

// FormatRange formats a start/end pair as
// "HH:MM:SS.mmm-HH:MM:SS.mmm", the canonical timestamp form used in
// rendered transcript lines, notes, and exports.
func FormatRange(start, end time.Time) string {
	return FormatClock(start) + "-" + FormatClock(end)
}
