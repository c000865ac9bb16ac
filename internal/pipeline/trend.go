package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/tavily"
	"github.com/reachskumar/echomarket/internal/textmine"
)

// TrendStage builds an independent dated price series by text-mining
// public web pages, deliberately not reusing the quote provider. Pages
// are fetched through a per-URL fallback chain and mined with the
// textmine parsers; the merged series is truncated to a trailing
// window.
type TrendStage struct {
	search     SearchProvider
	maxResults int
	windowDays int
	log        *logrus.Entry
	now        func() time.Time
}

func NewTrendStage(search SearchProvider, maxResults, windowDays int, logger *logrus.Logger) *TrendStage {
	if maxResults <= 0 {
		maxResults = 5
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	return &TrendStage{
		search:     search,
		maxResults: maxResults,
		windowDays: windowDays,
		log:        logger.WithField("stage", "trend"),
		now:        time.Now,
	}
}

func (s *TrendStage) Name() string { return "trend" }

func trendQueries(ticker string) []string {
	return []string{
		fmt.Sprintf("%s stock price history last 30 days daily close", ticker),
		fmt.Sprintf("%s share price daily closing prices table", ticker),
		fmt.Sprintf("%s historical stock prices recent", ticker),
	}
}

func (s *TrendStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	if strings.TrimSpace(st.Ticker) == "" {
		return Update{}, ErrMissingTicker
	}
	if !s.search.Configured() {
		s.log.Warn("search provider not configured, skipping trend mining")
		return Update{Trend: map[string]float64{}, Degraded: true}, nil
	}

	merged := map[string]float64{}
	visited := map[string]bool{}
	var failed []string
	for _, query := range trendQueries(st.Ticker) {
		results, err := s.search.Search(ctx, query, tavily.SearchOptions{MaxResults: s.maxResults})
		if err != nil {
			s.log.WithError(err).WithField("query", query).Warn("trend search failed")
			failed = append(failed, "tavily")
			continue
		}
		for _, r := range results {
			if r.URL == "" || visited[r.URL] {
				continue
			}
			visited[r.URL] = true

			text := s.pageText(ctx, r)
			if text == "" {
				continue
			}
			series := textmine.ParseDatedPrices(text)
			if len(series) == 0 {
				continue
			}
			// Earlier pages win on date collisions, matching the
			// first-seen rule used inside a single page.
			textmine.MergeFirstSeen(merged, series)
		}
	}

	trend := textmine.FilterWindow(merged, s.windowDays, s.now())
	return Update{Trend: trend, Degraded: len(trend) == 0, FailedProviders: failed}, nil
}

// pageText obtains the fullest text available for one result by walking
// a fallback chain: advanced extraction, basic extraction, crawl, then
// table mapping. The first non-empty text wins; the raw search snippet
// is the last resort.
func (s *TrendStage) pageText(ctx context.Context, r tavily.Result) string {
	for _, depth := range []tavily.Depth{tavily.DepthAdvanced, tavily.DepthBasic} {
		extracted, err := s.search.Extract(ctx, []string{r.URL}, depth)
		if err != nil {
			s.log.WithError(err).WithField("url", r.URL).Debug("extraction failed")
			continue
		}
		for _, e := range extracted {
			if strings.TrimSpace(e.Content) != "" {
				return e.Content
			}
		}
	}
	if text, err := s.search.Crawl(ctx, r.URL); err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	if text, err := s.search.MapTables(ctx, r.URL); err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	if strings.TrimSpace(r.RawContent) != "" {
		return r.RawContent
	}
	return r.Snippet
}
