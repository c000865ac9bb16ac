package pipeline

import (
	"context"
	"time"

	"github.com/reachskumar/echomarket/internal/providers/openai"
	"github.com/reachskumar/echomarket/internal/providers/tavily"
)

// QuoteProvider supplies market data for the price stage.
type QuoteProvider interface {
	// SpotPrice returns the latest trade price. ok is false when the
	// provider answered but had no numeric quote for the symbol.
	SpotPrice(ctx context.Context, ticker string) (price float64, ok bool, err error)
	// DailyCloseHistory returns ISO date -> close for the last n days.
	DailyCloseHistory(ctx context.Context, ticker string, days int) (map[string]float64, error)
}

// SearchProvider supplies web search, extraction and crawling for the
// news and trend stages. Configured reports whether a credential is
// present; unconfigured providers are skipped without error.
type SearchProvider interface {
	Configured() bool
	Search(ctx context.Context, query string, opts tavily.SearchOptions) ([]tavily.Result, error)
	Extract(ctx context.Context, urls []string, depth tavily.Depth) ([]tavily.Extraction, error)
	Crawl(ctx context.Context, url string) (string, error)
	MapTables(ctx context.Context, url string) (string, error)
}

// CompletionProvider is the chat-completion surface used by the
// sentiment, prediction and summary stages.
type CompletionProvider interface {
	Configured() bool
	Complete(ctx context.Context, messages []openai.Message, model string, temperature float64, maxTokens int) (string, error)
}

// AnalysisDocument is the durable record written by the persist stage.
type AnalysisDocument struct {
	QueryID   string         `json:"query_id"`
	Ticker    string         `json:"ticker"`
	Timestamp time.Time      `json:"timestamp"`
	State     *AnalysisState `json:"state"`
}

// DocumentStore is the durable sink for finished analyses.
type DocumentStore interface {
	InsertAnalysis(ctx context.Context, doc AnalysisDocument) (id string, err error)
}
