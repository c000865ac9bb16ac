package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/store"
)

type stubAnalyzer struct {
	state *pipeline.AnalysisState
	err   error
	calls int
}

func (a *stubAnalyzer) Run(ctx context.Context, ticker string) (*pipeline.AnalysisState, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	st := *a.state
	st.Ticker = strings.ToUpper(strings.TrimSpace(ticker))
	return &st, nil
}

type stubHistory struct {
	records []store.AnalysisRecord
}

func (h *stubHistory) GetAnalysis(ctx context.Context, id string) (store.AnalysisRecord, bool, error) {
	for _, r := range h.records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return store.AnalysisRecord{}, false, nil
}

func (h *stubHistory) ListAnalyses(ctx context.Context, ticker string, limit int) ([]store.AnalysisRecord, error) {
	return h.records, nil
}

func testServer(analyzer Analyzer, history History) *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(analyzer, history, nil, 4, log)
}

func analyzedState() *pipeline.AnalysisState {
	price := 182.52
	return &pipeline.AnalysisState{
		Ticker:         "ACME",
		CurrentPrice:   &price,
		Sentiment:      pipeline.SentimentBullish,
		Recommendation: pipeline.RecommendationBuy,
		Summary:        "ACME is currently trading at $182.52.",
		News:           []pipeline.NewsItem{{Title: "ACME beats", URL: "https://r.com/1"}},
	}
}

func TestHandleAnalyze(t *testing.T) {
	srv := testServer(&stubAnalyzer{state: analyzedState()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analyze/acme", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report pipeline.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if report.Ticker != "ACME" {
		t.Fatalf("expected normalized ticker, got %q", report.Ticker)
	}
	if report.Price != 182.52 {
		t.Fatalf("expected reconciled price, got %v", report.Price)
	}
}

func TestHandleAnalyzeEmptyTickerRejected(t *testing.T) {
	srv := testServer(&stubAnalyzer{state: analyzedState()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analyze/%20%20", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Fatalf("expected structured error body, got %s", rec.Body.String())
	}
}

func TestHandleExportCSVAndPDFAgreeOnPrice(t *testing.T) {
	// Both export formats go through the same reconciled report.
	state := analyzedState()
	state.CurrentPrice = nil // forces the summary-embedded fallback
	srv := testServer(&stubAnalyzer{state: state}, nil)

	csvReq := httptest.NewRequest(http.MethodGet, "/api/analyze/ACME/export?format=csv", nil)
	csvRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(csvRec, csvReq)
	if csvRec.Code != http.StatusOK {
		t.Fatalf("csv export: expected 200, got %d", csvRec.Code)
	}
	if !strings.Contains(csvRec.Body.String(), "$182.52") {
		t.Fatalf("csv missing reconciled price: %s", csvRec.Body.String())
	}

	pdfReq := httptest.NewRequest(http.MethodGet, "/api/analyze/ACME/export?format=pdf", nil)
	pdfRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(pdfRec, pdfReq)
	if pdfRec.Code != http.StatusOK {
		t.Fatalf("pdf export: expected 200, got %d", pdfRec.Code)
	}
	if !strings.HasPrefix(pdfRec.Body.String(), "%PDF-") {
		t.Fatal("expected a PDF body")
	}
}

func TestHandleExportUnknownFormat(t *testing.T) {
	srv := testServer(&stubAnalyzer{state: analyzedState()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analyze/ACME/export?format=xlsx", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDetectTicker(t *testing.T) {
	srv := testServer(&stubAnalyzer{state: analyzedState()}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/detect-ticker",
		strings.NewReader(`{"text": "thoughts on $NVDA?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Ticker   string `json:"ticker"`
		Detected bool   `json:"detected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !out.Detected || out.Ticker != "NVDA" {
		t.Fatalf("expected NVDA, got %+v", out)
	}
}

func TestHandleHistoryWithoutStore(t *testing.T) {
	srv := testServer(&stubAnalyzer{state: analyzedState()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a store, got %d", rec.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	history := &stubHistory{records: []store.AnalysisRecord{{ID: "r1", Ticker: "ACME"}}}
	srv := testServer(&stubAnalyzer{state: analyzedState()}, history)

	req := httptest.NewRequest(http.MethodGet, "/api/history?ticker=acme", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history/r1", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for known id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history/nope", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}
