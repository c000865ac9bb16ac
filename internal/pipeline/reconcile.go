package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/reachskumar/echomarket/internal/textmine"
)

// PriceUnavailable is the sentinel rendered wherever no price could be
// reconciled. The rendered report never shows a zero price.
const PriceUnavailable = "unavailable"

// ResolvedPrice is the outcome of the display-price reconciliation.
// Source records which fallback level produced the value.
type ResolvedPrice struct {
	Value  float64
	OK     bool
	Source string
}

// String renders the price for CSV, PDF and logs; JSON responses use
// Value/OK directly.
func (p ResolvedPrice) String() string {
	if !p.OK {
		return PriceUnavailable
	}
	return "$" + strconv.FormatFloat(p.Value, 'f', 2, 64)
}

var summaryPriceRe = regexp.MustCompile(`\$\s*([0-9]{1,6}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)`)

// ResolvePrice picks the price to display, in strict precedence order:
// the live quote when positive, then the most recent positive value in
// the daily close series, then a monetary amount embedded in the
// summary text, and finally the unavailable sentinel. Every rendering
// path goes through this one function so JSON and file exports can
// never disagree.
func ResolvePrice(st *AnalysisState) ResolvedPrice {
	if st.CurrentPrice != nil && *st.CurrentPrice > 0 {
		return ResolvedPrice{Value: *st.CurrentPrice, OK: true, Source: "quote"}
	}

	dates := textmine.SortedDates(st.Prices)
	for i := len(dates) - 1; i >= 0; i-- {
		if v := st.Prices[dates[i]]; v > 0 {
			return ResolvedPrice{Value: v, OK: true, Source: "history"}
		}
	}

	if m := summaryPriceRe.FindStringSubmatch(st.Summary); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return ResolvedPrice{Value: v, OK: true, Source: "summary"}
		}
	}

	return ResolvedPrice{Source: "none"}
}

// Report is the terminal response shape. It is always complete and
// well-typed: missing pieces appear as documented sentinels (the
// unavailable price marker, Neutral/Hold defaults, empty sequences, a
// null log id), never as absent keys or zeroes.
type Report struct {
	QueryID        string             `json:"query_id"`
	Ticker         string             `json:"ticker"`
	Timestamp      time.Time          `json:"timestamp"`
	Price          any                `json:"price"`
	PriceSource    string             `json:"price_source"`
	Prices         map[string]float64 `json:"prices"`
	Trend          map[string]float64 `json:"trend"`
	Sentiment      SentimentLabel     `json:"sentiment"`
	Confidence     float64            `json:"confidence"`
	Recommendation Recommendation     `json:"recommendation"`
	InsightConf    float64            `json:"recommendation_confidence"`
	Insight        string             `json:"insight"`
	Summary        string             `json:"summary"`
	News           []NewsItem         `json:"news"`
	LogID          *string            `json:"log_id"`
	Degraded       []string           `json:"degraded"`
}

// Render builds the terminal report from a finished state, applying the
// price reconciliation.
func Render(st *AnalysisState, queryID string, at time.Time) Report {
	price := ResolvePrice(st)

	r := Report{
		QueryID:        queryID,
		Ticker:         st.Ticker,
		Timestamp:      at.UTC(),
		Price:          PriceUnavailable,
		PriceSource:    price.Source,
		Prices:         st.Prices,
		Trend:          st.Trend,
		Sentiment:      st.Sentiment,
		Confidence:     st.Confidence,
		Recommendation: st.Recommendation,
		InsightConf:    st.RecommendationConfidence,
		Insight:        st.Insight,
		Summary:        st.Summary,
		News:           st.News,
		Degraded:       st.Degraded,
	}
	if price.OK {
		r.Price = price.Value
	}
	if st.PersistenceID != "" {
		r.LogID = &st.PersistenceID
	}
	if r.Prices == nil {
		r.Prices = map[string]float64{}
	}
	if r.Trend == nil {
		r.Trend = map[string]float64{}
	}
	if r.News == nil {
		r.News = []NewsItem{}
	}
	if r.Degraded == nil {
		r.Degraded = []string{}
	}
	return r
}
