package textmine

import (
	"sort"
	"strings"
	"time"
)

// ParseDatedPrices scans text line by line for date/price pairs. A line
// qualifies when it contains a date token; the monetary tokens after the
// date are preferred, falling back to the whole line. Later occurrences of
// a date already seen in the same text overwrite nothing — callers merge
// across sources with first-seen-wins semantics anyway.
func ParseDatedPrices(text string) map[string]float64 {
	out := make(map[string]float64)
	for _, line := range strings.Split(text, "\n") {
		token, end, ok := findDate(line)
		if !ok {
			continue
		}
		iso, ok := NormalizeDate(token)
		if !ok {
			continue
		}
		tokens := moneyTokens(line[end:])
		if len(tokens) == 0 {
			tokens = moneyTokens(line)
		}
		price, ok := PickPrice(tokens)
		if !ok {
			continue
		}
		if _, seen := out[iso]; !seen {
			out[iso] = price
		}
	}
	return out
}

// MergeFirstSeen folds src into dst without overwriting dates dst already
// holds.
func MergeFirstSeen(dst, src map[string]float64) {
	for d, p := range src {
		if _, ok := dst[d]; !ok {
			dst[d] = p
		}
	}
}

// FilterWindow keeps only entries within the trailing window of days
// relative to now. A date exactly windowDays old is included; one day
// older is not.
func FilterWindow(series map[string]float64, windowDays int, now time.Time) map[string]float64 {
	cutoff := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -windowDays)
	out := make(map[string]float64, len(series))
	for d, p := range series {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		if !t.Before(cutoff) {
			out[d] = p
		}
	}
	return out
}

// SortedDates returns the series keys in chronological order.
func SortedDates(series map[string]float64) []string {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
