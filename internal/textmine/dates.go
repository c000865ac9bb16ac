// Package textmine parses dated price points out of unstructured text such
// as search snippets and crawled pages. It is deliberately conservative:
// a line contributes a data point only when it carries a recognizable date
// token and a plausible monetary token.
package textmine

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	isoDateRe   = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/(?:\d{2}|\d{4}))\b`)
)

// NormalizeDate converts a matched date token to ISO form (YYYY-MM-DD).
// Slash dates are read as M/D/Y with two-digit years assumed to be in the
// 21st century. Tokens that match neither format return ok=false; things
// like "Q3" or "FY2024" never qualify.
func NormalizeDate(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if isoDateRe.FindString(token) == token && token != "" {
		return token, true
	}
	if slashDateRe.FindString(token) != token || token == "" {
		return "", false
	}
	parts := strings.Split(token, "/")
	if len(parts) != 3 {
		return "", false
	}
	mm, dd, yy := parts[0], parts[1], parts[2]
	if len(mm) == 1 {
		mm = "0" + mm
	}
	if len(dd) == 1 {
		dd = "0" + dd
	}
	if len(yy) == 2 {
		yy = "20" + yy
	}
	iso := fmt.Sprintf("%s-%s-%s", yy, mm, dd)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", false
	}
	return iso, true
}

// findDate locates the first date token in a line and reports the position
// just past the match, so callers can prefer price tokens that follow it.
func findDate(line string) (token string, end int, ok bool) {
	if loc := isoDateRe.FindStringIndex(line); loc != nil {
		return line[loc[0]:loc[1]], loc[1], true
	}
	if loc := slashDateRe.FindStringIndex(line); loc != nil {
		return line[loc[0]:loc[1]], loc[1], true
	}
	return "", 0, false
}
