package pipeline

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/openai"
	"github.com/reachskumar/echomarket/internal/providers/tavily"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fastRetry removes backoff sleeps from tests.
func fastRetry() RetryOptions {
	return RetryOptions{MaxAttempts: 3, InitialBackoff: 1, Sleep: func(context.Context, time.Duration) {}}
}

type stubQuotes struct {
	spot       float64
	spotOK     bool
	spotErr    error
	history    map[string]float64
	historyErr error
}

func (s *stubQuotes) SpotPrice(ctx context.Context, ticker string) (float64, bool, error) {
	return s.spot, s.spotOK, s.spotErr
}

func (s *stubQuotes) DailyCloseHistory(ctx context.Context, ticker string, days int) (map[string]float64, error) {
	return s.history, s.historyErr
}

type stubSearch struct {
	configured bool
	results    map[string][]tavily.Result // keyed by query; "" is the catch-all
	searchErr  error

	extract    map[string]string // url -> content
	extractErr error
	crawl      map[string]string
	crawlErr   error
	tables     map[string]string
	tablesErr  error

	searchCalls  []string
	extractCalls []string
	crawlCalls   []string
	tableCalls   []string
}

func (s *stubSearch) Configured() bool { return s.configured }

func (s *stubSearch) Search(ctx context.Context, query string, opts tavily.SearchOptions) ([]tavily.Result, error) {
	s.searchCalls = append(s.searchCalls, query)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if r, ok := s.results[query]; ok {
		return r, nil
	}
	return s.results[""], nil
}

func (s *stubSearch) Extract(ctx context.Context, urls []string, depth tavily.Depth) ([]tavily.Extraction, error) {
	for _, u := range urls {
		s.extractCalls = append(s.extractCalls, fmt.Sprintf("%s@%s", u, depth))
	}
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	var out []tavily.Extraction
	for _, u := range urls {
		out = append(out, tavily.Extraction{URL: u, Content: s.extract[u]})
	}
	return out, nil
}

func (s *stubSearch) Crawl(ctx context.Context, url string) (string, error) {
	s.crawlCalls = append(s.crawlCalls, url)
	if s.crawlErr != nil {
		return "", s.crawlErr
	}
	return s.crawl[url], nil
}

func (s *stubSearch) MapTables(ctx context.Context, url string) (string, error) {
	s.tableCalls = append(s.tableCalls, url)
	if s.tablesErr != nil {
		return "", s.tablesErr
	}
	return s.tables[url], nil
}

// stubLLM replays canned responses in order, recording the model used
// per call. After the canned list runs out the last entry repeats.
type stubLLM struct {
	configured bool
	replies    []string
	errs       []error
	calls      []string
}

func (s *stubLLM) Configured() bool { return s.configured }

func (s *stubLLM) Complete(ctx context.Context, messages []openai.Message, model string, temperature float64, maxTokens int) (string, error) {
	i := len(s.calls)
	s.calls = append(s.calls, model)
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	if i < 0 {
		return "", fmt.Errorf("no canned reply")
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.replies[i], nil
}

type stubStore struct {
	id   string
	err  error
	docs []AnalysisDocument
}

func (s *stubStore) InsertAnalysis(ctx context.Context, doc AnalysisDocument) (string, error) {
	s.docs = append(s.docs, doc)
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func TestNewAnalysisStateNormalizesTicker(t *testing.T) {
	st, err := NewAnalysisState("  nvda ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Ticker != "NVDA" {
		t.Fatalf("expected NVDA, got %q", st.Ticker)
	}
	if st.Sentiment != SentimentNeutral || st.Recommendation != RecommendationHold {
		t.Fatalf("expected neutral defaults, got %s/%s", st.Sentiment, st.Recommendation)
	}
}

func TestNewAnalysisStateRejectsEmptyTicker(t *testing.T) {
	for _, in := range []string{"", "   ", "\t"} {
		if _, err := NewAnalysisState(in); err != ErrMissingTicker {
			t.Fatalf("input %q: expected ErrMissingTicker, got %v", in, err)
		}
	}
}
