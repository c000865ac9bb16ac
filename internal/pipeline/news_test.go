package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/reachskumar/echomarket/internal/providers/tavily"
)

func TestNewsStageScoresAndDeduplicates(t *testing.T) {
	search := &stubSearch{
		configured: true,
		results: map[string][]tavily.Result{"": {
			{Title: "ACME earnings beat", URL: "https://example.com/a", Snippet: "ACME stock earnings surged", Score: 0.5},
			{Title: "Duplicate URL item", URL: "https://example.com/a", Snippet: "should be dropped", Score: 0.9},
			{Title: "", URL: "https://example.com/b", Snippet: "no title"},
			{Title: "No snippet", URL: "https://example.com/c", Snippet: "   "},
			{Title: "Premium coverage", URL: "https://www.reuters.com/markets/acme", Snippet: "ACME shares climb", Score: 0.5},
		}},
	}
	stage := NewNewsStage(search, 10, 8, testLogger())
	st, _ := NewAnalysisState("ACME")

	up, err := stage.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.News) != 2 {
		t.Fatalf("expected 2 usable items, got %d: %+v", len(up.News), up.News)
	}
	// The reuters item gets the premium-domain boost and sorts first.
	if up.News[0].URL != "https://www.reuters.com/markets/acme" {
		t.Fatalf("expected premium item first, got %q", up.News[0].URL)
	}
	if up.News[0].Score <= up.News[1].Score {
		t.Fatalf("expected descending scores, got %v then %v", up.News[0].Score, up.News[1].Score)
	}
	// First occurrence of the duplicated URL wins.
	if up.News[1].Title != "ACME earnings beat" {
		t.Fatalf("expected first-seen title for deduped URL, got %q", up.News[1].Title)
	}
	if up.Degraded {
		t.Fatal("stage should not be degraded with usable items")
	}
}

func TestNewsStageCapsResults(t *testing.T) {
	var results []tavily.Result
	for i := 0; i < 12; i++ {
		results = append(results, tavily.Result{
			Title:   fmt.Sprintf("Item %d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Snippet: "ACME stock news",
		})
	}
	search := &stubSearch{configured: true, results: map[string][]tavily.Result{"": results}}
	stage := NewNewsStage(search, 15, 8, testLogger())
	st, _ := NewAnalysisState("ACME")

	up, err := stage.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.News) != 8 {
		t.Fatalf("expected cap of 8, got %d", len(up.News))
	}
}

func TestNewsStageUnconfiguredProvider(t *testing.T) {
	stage := NewNewsStage(&stubSearch{configured: false}, 10, 8, testLogger())
	st, _ := NewAnalysisState("ACME")

	up, err := stage.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.News) != 0 || !up.Degraded {
		t.Fatalf("expected empty degraded update, got %+v", up)
	}
	if len(stage.search.(*stubSearch).searchCalls) != 0 {
		t.Fatal("unconfigured provider must not be called")
	}
}

func TestNewsStageSearchFailureDegrades(t *testing.T) {
	search := &stubSearch{configured: true, searchErr: fmt.Errorf("upstream 500")}
	stage := NewNewsStage(search, 10, 8, testLogger())
	st, _ := NewAnalysisState("ACME")

	up, err := stage.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("stage must absorb search failures, got %v", err)
	}
	if !up.Degraded || len(up.News) != 0 {
		t.Fatalf("expected empty degraded update, got %+v", up)
	}
}

func TestNewsStageExtractionBackfillIsBestEffort(t *testing.T) {
	search := &stubSearch{
		configured: true,
		results: map[string][]tavily.Result{"": {
			{Title: "Empty snippet item", URL: "https://example.com/x", Snippet: ""},
			{Title: "Normal item", URL: "https://example.com/y", Snippet: "ACME stock coverage"},
		}},
		extractErr: fmt.Errorf("extract unavailable"),
	}
	stage := NewNewsStage(search, 10, 8, testLogger())
	st, _ := NewAnalysisState("ACME")

	up, err := stage.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Backfill failed, so the empty-snippet item is filtered and the
	// plain result stands.
	if len(up.News) != 1 || up.News[0].URL != "https://example.com/y" {
		t.Fatalf("expected only the snippet-bearing item, got %+v", up.News)
	}
}

func TestIsPremiumDomain(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.reuters.com/markets", true},
		{"https://bloomberg.com/news/x", true},
		{"https://live.ft.com/feed", true},
		{"https://example.com/reuters.com", false},
		{"https://notreuters.com/a", false},
		{"://bad url", false},
	}
	for _, tt := range tests {
		if got := isPremiumDomain(tt.url); got != tt.want {
			t.Fatalf("isPremiumDomain(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSnippetLeadCutsOnRuneBoundary(t *testing.T) {
	// 451 bytes of three-byte runes offset by one, so byte 300 falls
	// inside a rune.
	long := "x" + strings.Repeat("世", 150)
	got := snippetLead(long)
	if !utf8.ValidString(got) {
		t.Fatalf("snippetLead produced invalid UTF-8: %q", got)
	}
	if len(got) != 298 {
		t.Fatalf("len = %d, want 298", len(got))
	}

	short := "brief  note"
	if got := snippetLead(short); got != "brief note" {
		t.Fatalf("snippetLead(%q) = %q", short, got)
	}
}
