package logging

import "time"

const (
	clockLayout    = "15:04:05"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// clock is swapped in tests.
var clock = time.Now

// formatLineTime renders a console line prefix. Runs over long recordings
// cross midnight, so entries from an earlier local day carry their date.
func formatLineTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	local := ts.In(time.Local)
	now := clock().In(time.Local)
	if y, m, d := local.Date(); y == now.Year() && m == now.Month() && d == now.Day() {
		return local.Format(clockLayout)
	}
	return local.Format(dateTimeLayout)
}

// formatTimeValue renders a time attribute such as a run's started_at. It
// always carries the date and zone since it may be read back from history.
func formatTimeValue(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(dateTimeLayout + " MST")
}
