package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/textmine"
)

// WritePDF renders the report as a one-page (auto-breaking) PDF
// download.
func WritePDF(report pipeline.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s Analysis Report", report.Ticker), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, "Generated "+report.Timestamp.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, value, "", "L", false)
	}
	row("Current Price", priceCell(report))
	row("Sentiment", fmt.Sprintf("%s (%.0f%% confidence)", report.Sentiment, report.Confidence*100))
	row("Recommendation", fmt.Sprintf("%s (%.0f%% confidence)", report.Recommendation, report.InsightConf*100))
	if report.Insight != "" {
		row("Key Insight", report.Insight)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5.5, report.Summary, "", "L", false)

	if len(report.News) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Top News", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, item := range report.News {
			pdf.MultiCell(0, 5, fmt.Sprintf("- %s (%.0f)", item.Title, item.Score), "", "L", false)
		}
	}

	if len(report.Trend) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Recent Price Trend", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, "Date", "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, "Price", "1", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, date := range textmine.SortedDates(report.Trend) {
			pdf.CellFormat(40, 6, date, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", report.Trend[date]), "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
