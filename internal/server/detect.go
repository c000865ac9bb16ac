package server

import (
	"regexp"
	"strings"
)

// Ticker detection walks a ladder of increasingly loose patterns over
// free-form text: an explicit $SYMBOL, a parenthesized symbol as used
// in article ledes, then any bare uppercase word that is not a common
// market term.
var (
	dollarTickerRe = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
	parenTickerRe  = regexp.MustCompile(`\(([A-Z]{1,5})\)`)
	bareTickerRe   = regexp.MustCompile(`\b([A-Z]{1,5})\b`)
)

// tickerStopWords are uppercase words that look like symbols but never
// are.
var tickerStopWords = map[string]bool{
	"NYSE": true, "NASDAQ": true, "STOCK": true, "INC": true,
	"CORP": true, "LLC": true, "LTD": true, "CEO": true, "CFO": true,
	"IPO": true, "ETF": true, "USD": true, "API": true, "THE": true,
	"A": true, "I": true,
}

// DetectTicker extracts the most likely stock symbol from text. The
// boolean is false when nothing plausible is found.
func DetectTicker(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if m := dollarTickerRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1]), true
	}
	if m := parenTickerRe.FindStringSubmatch(text); m != nil {
		if sym := m[1]; !tickerStopWords[sym] {
			return sym, true
		}
	}
	for _, m := range bareTickerRe.FindAllStringSubmatch(text, -1) {
		if sym := m[1]; !tickerStopWords[sym] {
			return sym, true
		}
	}
	return "", false
}
