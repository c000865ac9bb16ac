package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/tavily"
)

// Relevance scoring weights. A keyword hit in the title or snippet is
// worth less than coming from a premium financial domain, and the
// provider's own relevance score is folded in scaled.
const (
	keywordWeight       = 15.0
	premiumDomainWeight = 30.0
	providerScoreWeight = 20.0
)

var newsKeywords = []string{
	"stock", "earnings", "revenue", "shares", "forecast", "guidance",
	"analyst", "quarter",
}

// premiumDomains is the fixed allow-list of financial outlets whose
// coverage gets a scoring boost.
var premiumDomains = map[string]bool{
	"bloomberg.com":     true,
	"reuters.com":       true,
	"wsj.com":           true,
	"ft.com":            true,
	"cnbc.com":          true,
	"marketwatch.com":   true,
	"barrons.com":       true,
	"finance.yahoo.com": true,
	"seekingalpha.com":  true,
	"investors.com":     true,
}

// NewsStage searches for recent coverage of the ticker, scores and
// deduplicates the results, and keeps the top items. An unconfigured or
// failing search provider yields an empty, degraded list.
type NewsStage struct {
	search     SearchProvider
	maxResults int
	limit      int
	extractTop int
	log        *logrus.Entry
}

func NewNewsStage(search SearchProvider, maxResults, limit int, logger *logrus.Logger) *NewsStage {
	if maxResults <= 0 {
		maxResults = 10
	}
	if limit <= 0 {
		limit = 8
	}
	return &NewsStage{
		search:     search,
		maxResults: maxResults,
		limit:      limit,
		extractTop: 3,
		log:        logger.WithField("stage", "news"),
	}
}

func (s *NewsStage) Name() string { return "news" }

func (s *NewsStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	if !s.search.Configured() {
		s.log.Warn("search provider not configured, skipping news")
		return Update{News: []NewsItem{}, Degraded: true}, nil
	}

	query := fmt.Sprintf("%s stock news earnings financial", st.Ticker)
	results, err := s.search.Search(ctx, query, tavily.SearchOptions{MaxResults: s.maxResults})
	if err != nil {
		s.log.WithError(err).Warn("news search failed")
		return Update{News: []NewsItem{}, Degraded: true, FailedProviders: []string{"tavily"}}, nil
	}

	s.backfillSnippets(ctx, results)

	items := scoreNews(st.Ticker, results)
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	return Update{News: items, Degraded: len(items) == 0}, nil
}

// backfillSnippets runs a content extraction over the top results whose
// snippet came back empty. Extraction is best-effort: on failure the
// plain search results stand as-is.
func (s *NewsStage) backfillSnippets(ctx context.Context, results []tavily.Result) {
	var urls []string
	for i, r := range results {
		if i >= s.extractTop {
			break
		}
		if strings.TrimSpace(r.Snippet) == "" && r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	if len(urls) == 0 {
		return
	}
	extracted, err := s.search.Extract(ctx, urls, tavily.DepthBasic)
	if err != nil {
		s.log.WithError(err).Debug("snippet extraction failed")
		return
	}
	byURL := make(map[string]string, len(extracted))
	for _, e := range extracted {
		byURL[e.URL] = e.Content
	}
	for i := range results {
		if strings.TrimSpace(results[i].Snippet) != "" {
			continue
		}
		if content := byURL[results[i].URL]; content != "" {
			results[i].Snippet = snippetLead(content)
		}
	}
}

// snippetLead collapses whitespace and keeps the leading run of the
// content, cutting on a rune boundary so multi-byte text is never split.
func snippetLead(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= 300 {
		return content
	}
	cut := 300
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// scoreNews filters out unusable results, deduplicates by URL keeping
// the first occurrence, scores the rest and returns them in descending
// score order. The sort is stable so equal scores keep arrival order.
func scoreNews(ticker string, results []tavily.Result) []NewsItem {
	seen := make(map[string]bool, len(results))
	items := make([]NewsItem, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Snippet) == "" {
			continue
		}
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		items = append(items, NewsItem{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Score:   relevanceScore(ticker, r),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items
}

func relevanceScore(ticker string, r tavily.Result) float64 {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	hits := 0
	if strings.Contains(text, strings.ToLower(ticker)) {
		hits++
	}
	for _, kw := range newsKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	score := keywordWeight * float64(hits)
	if isPremiumDomain(r.URL) {
		score += premiumDomainWeight
	}
	score += providerScoreWeight * r.Score
	return score
}

func isPremiumDomain(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if premiumDomains[host] {
		return true
	}
	// Match subdomains of allow-listed outlets too.
	for domain := range premiumDomains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
