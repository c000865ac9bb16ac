package textmine

import (
	"regexp"
	"strconv"
	"strings"
)

var moneyRe = regexp.MustCompile(`\$?\s*([0-9]{1,5}(?:,[0-9]{3})*(?:\.\d{1,2})?)`)

// maxPlausibleInteger rejects stray large integers (volumes, page numbers)
// when no decimal-bearing token is present.
const maxPlausibleInteger = 1000

// PickPrice selects the most plausible price from candidate monetary
// tokens: the first token containing a decimal point wins; otherwise the
// first token whose value falls below 1000.
func PickPrice(tokens []string) (float64, bool) {
	for _, t := range tokens {
		clean := cleanToken(t)
		if !strings.Contains(clean, ".") {
			continue
		}
		if v, err := strconv.ParseFloat(clean, 64); err == nil {
			return v, true
		}
	}
	for _, t := range tokens {
		clean := cleanToken(t)
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		if v < maxPlausibleInteger {
			return v, true
		}
	}
	return 0, false
}

func cleanToken(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "$")
	t = strings.TrimSpace(t)
	return strings.ReplaceAll(t, ",", "")
}

// moneyTokens extracts candidate monetary tokens from s, in order.
func moneyTokens(s string) []string {
	matches := moneyRe.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
