package dashboard

import (
	"strconv"
	"time"
)

// DateLayout matches the en-US short date-time the dashboard has always shown.
const DateLayout = "Jan 2, 2006, 03:04 PM"

// FormatDate renders ts in loc using DateLayout. A nil loc means UTC.
func FormatDate(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(DateLayout)
}

// FormatRelativeTime describes how long before now ts was, in whole minutes,
// hours or days. Anything a week or older falls back to FormatDate.
func FormatRelativeTime(ts, now time.Time, loc *time.Location) string {
	elapsed := now.Sub(ts)
	mins := floorDiv(elapsed, time.Minute)
	hours := floorDiv(elapsed, time.Hour)
	days := floorDiv(elapsed, 24*time.Hour)

	switch {
	case mins < 60:
		return ago(mins, "min")
	case hours < 24:
		return ago(hours, "hour")
	case days < 7:
		return ago(days, "day")
	default:
		return FormatDate(ts, loc)
	}
}

func ago(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return strconv.FormatInt(n, 10) + " " + unit + " ago"
}

// floorDiv rounds toward negative infinity so timestamps slightly in the
// future read as "-1 mins ago" rather than "0 mins ago".
func floorDiv(d, unit time.Duration) int64 {
	q := int64(d / unit)
	if d%unit < 0 {
		q--
	}
	return q
}
