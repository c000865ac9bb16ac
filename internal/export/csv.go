// Package export renders finished analysis reports to downloadable CSV
// and PDF files. Both renderers consume the already-reconciled report,
// so the displayed price can never differ between formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/textmine"
)

func priceCell(report pipeline.Report) string {
	if v, ok := report.Price.(float64); ok {
		return "$" + strconv.FormatFloat(v, 'f', 2, 64)
	}
	return pipeline.PriceUnavailable
}

// WriteCSV writes the report as a flat key/value CSV followed by the
// news and trend sections.
func WriteCSV(w io.Writer, report pipeline.Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"field", "value"},
		{"ticker", report.Ticker},
		{"generated_at", report.Timestamp.Format(time.RFC3339)},
		{"price", priceCell(report)},
		{"sentiment", string(report.Sentiment)},
		{"sentiment_confidence", strconv.FormatFloat(report.Confidence, 'f', 2, 64)},
		{"recommendation", string(report.Recommendation)},
		{"recommendation_confidence", strconv.FormatFloat(report.InsightConf, 'f', 2, 64)},
		{"insight", report.Insight},
		{"summary", report.Summary},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	if len(report.News) > 0 {
		cw.Write([]string{})
		cw.Write([]string{"news_title", "news_url", "news_score"})
		for _, item := range report.News {
			cw.Write([]string{item.Title, item.URL, strconv.FormatFloat(item.Score, 'f', 1, 64)})
		}
	}

	if len(report.Trend) > 0 {
		cw.Write([]string{})
		cw.Write([]string{"trend_date", "trend_price"})
		for _, date := range textmine.SortedDates(report.Trend) {
			cw.Write([]string{date, strconv.FormatFloat(report.Trend[date], 'f', 2, 64)})
		}
	}

	cw.Flush()
	return cw.Error()
}
