// Package tavily implements the search, extraction, crawl and table-map
// provider consumed by the news and trend stages.
package tavily

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/config"
)

// ErrMissingAPIKey marks an unconfigured search credential. The trend
// stage treats this as a hard precondition and returns an empty series.
var ErrMissingAPIKey = errors.New("tavily: api key not configured")

// Result is one search hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Snippet    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

// Extraction is the extracted content of one URL.
type Extraction struct {
	URL     string `json:"url"`
	Content string `json:"raw_content"`
}

// Depth selects the extraction effort level.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// SearchOptions tune a single search call.
type SearchOptions struct {
	MaxResults     int
	IncludeDomains []string
	ExcludeDomains []string
}

// Client wraps the Tavily REST API. Safe for concurrent use.
type Client struct {
	cfg  config.TavilyConfig
	http *httpClient
	log  *logrus.Entry
}

// New creates a search/extract client with bounded retries on transport
// and non-2xx failures.
func New(cfg config.TavilyConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: newHTTPClient(cfg.SearchTimeout, cfg.Retries, cfg.Backoff),
		log:  logger.WithField("component", "tavily"),
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"Content-Type":  "application/json",
	}
}

// Search runs one search query and returns up to opts.MaxResults hits.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	payload := map[string]any{
		"query":           query,
		"search_depth":    "basic",
		"include_answer":  false,
		"include_images":  false,
		"max_results":     maxResults,
		"include_domains": opts.IncludeDomains,
		"exclude_domains": opts.ExcludeDomains,
	}
	var out struct {
		Results []Result `json:"results"`
	}
	if err := c.http.doJSON(ctx, "POST", c.cfg.BaseURL+"/search", c.headers(), payload, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out.Results, nil
}

// Extract pulls readable text for the given URLs at the requested depth.
func (c *Client) Extract(ctx context.Context, urls []string, depth Depth) ([]Extraction, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}
	payload := map[string]any{
		"urls":          urls,
		"extract_depth": string(depth),
		"format":        "text",
	}
	var out struct {
		Results []struct {
			URL        string `json:"url"`
			RawContent string `json:"raw_content"`
			Content    string `json:"content"`
		} `json:"results"`
	}
	client := newHTTPClient(c.cfg.ExtractTimeout, c.cfg.Retries, c.cfg.Backoff)
	if err := client.doJSON(ctx, "POST", c.cfg.BaseURL+"/extract", c.headers(), payload, &out); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	extractions := make([]Extraction, 0, len(out.Results))
	for _, r := range out.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		extractions = append(extractions, Extraction{URL: r.URL, Content: content})
	}
	return extractions, nil
}

// Crawl fetches the raw text of a single URL.
func (c *Client) Crawl(ctx context.Context, url string) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}
	var out struct {
		Content string `json:"content"`
	}
	client := newHTTPClient(c.cfg.ExtractTimeout, c.cfg.Retries, c.cfg.Backoff)
	if err := client.doJSON(ctx, "POST", c.cfg.BaseURL+"/crawl", c.headers(), map[string]any{"url": url}, &out); err != nil {
		return "", fmt.Errorf("crawl %s: %w", url, err)
	}
	return out.Content, nil
}

// MapTables scrapes structured table rows from a URL and flattens them to
// whitespace-joined lines, one per row.
func (c *Client) MapTables(ctx context.Context, url string) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}
	var out struct {
		Results []struct {
			Rows [][]string `json:"rows"`
		} `json:"results"`
	}
	client := newHTTPClient(c.cfg.ExtractTimeout, c.cfg.Retries, c.cfg.Backoff)
	if err := client.doJSON(ctx, "POST", c.cfg.BaseURL+"/map", c.headers(), map[string]any{"url": url}, &out); err != nil {
		return "", fmt.Errorf("map %s: %w", url, err)
	}
	var body strings.Builder
	for _, table := range out.Results {
		for _, row := range table.Rows {
			body.WriteString(strings.Join(row, " "))
			body.WriteString("\n")
		}
	}
	return body.String(), nil
}
