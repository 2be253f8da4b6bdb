package scrape

import (
	"strconv"
	"strings"
	"time"
)

// ParseRelativeTime converts "posted X ago" text ("3h ago", "2d ago",
// "15m ago") to an absolute timestamp relative to now. Units are matched
// in h, d, m order so "m" never shadows the minutes in "15m". Anything
// unrecognized or malformed yields now unchanged; the caller treats that
// as "posted just now" rather than an error.
func ParseRelativeTime(text string, now time.Time) time.Time {
	switch {
	case strings.Contains(text, "h ago"):
		if n, ok := leadingInt(text, "h"); ok {
			return now.Add(-time.Duration(n) * time.Hour)
		}
	case strings.Contains(text, "d ago"):
		if n, ok := leadingInt(text, "d"); ok {
			return now.AddDate(0, 0, -n)
		}
	case strings.Contains(text, "m ago"):
		if n, ok := leadingInt(text, "m"); ok {
			return now.Add(-time.Duration(n) * time.Minute)
		}
	}
	return now
}

func leadingInt(text, unit string) (int, bool) {
	head, _, ok := strings.Cut(text, unit)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
