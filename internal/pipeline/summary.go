package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/openai"
)

// SummaryStage produces the human-readable report paragraph. Model
// failure falls back to a deterministic template assembled from the
// state, so every run ends with readable prose.
type SummaryStage struct {
	llm  CompletionProvider
	opts LLMOptions
	log  *logrus.Entry
}

func NewSummaryStage(llm CompletionProvider, opts LLMOptions, logger *logrus.Logger) *SummaryStage {
	return &SummaryStage{llm: llm, opts: opts, log: logger.WithField("stage", "summary")}
}

func (s *SummaryStage) Name() string { return "summary" }

func (s *SummaryStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	if !s.llm.Configured() {
		s.log.Warn("llm not configured, using template summary")
		return Update{Summary: ptr(templateSummary(st)), Degraded: true}, nil
	}

	prompt := summaryPrompt(st)
	text, err := Call(ctx, s.opts.Retry, s.opts.Primary, &s.opts.Fallback,
		func(ctx context.Context, tier ModelTier) (string, error) {
			return s.llm.Complete(ctx, []openai.Message{
				{Role: "system", Content: "You are a financial writer. Write one concise analysis paragraph, plain text."},
				{Role: "user", Content: prompt},
			}, tier.Model, tier.Temperature, tier.MaxTokens)
		},
		func(text string) error {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("empty summary")
			}
			return nil
		})
	if err != nil {
		s.log.WithError(err).Warn("summary degraded to template")
		return Update{Summary: ptr(templateSummary(st)), Degraded: true, FailedProviders: []string{"openai"}}, nil
	}
	return Update{Summary: ptr(strings.TrimSpace(text))}, nil
}

func summaryPrompt(st *AnalysisState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a one-paragraph investment summary for %s.\n\n", st.Ticker)
	if st.CurrentPrice != nil {
		fmt.Fprintf(&b, "Current price: $%.2f\n", *st.CurrentPrice)
	}
	fmt.Fprintf(&b, "Sentiment: %s (%.2f)\n", st.Sentiment, st.Confidence)
	fmt.Fprintf(&b, "Recommendation: %s (%.2f)\n", st.Recommendation, st.RecommendationConfidence)
	if st.Insight != "" {
		fmt.Fprintf(&b, "Key insight: %s\n", st.Insight)
	}
	fmt.Fprintf(&b, "News items considered: %d, mined trend points: %d\n", len(st.News), len(st.Trend))
	return b.String()
}

// templateSummary is the deterministic fallback paragraph. It embeds
// the price when one is known, which also feeds the price
// reconciliation fallback chain.
func templateSummary(st *AnalysisState) string {
	price := "an unavailable price"
	if st.CurrentPrice != nil && *st.CurrentPrice > 0 {
		price = fmt.Sprintf("$%.2f", *st.CurrentPrice)
	}
	return fmt.Sprintf(
		"%s is currently trading at %s. News sentiment is %s with %.0f%% confidence across %d recent articles. "+
			"Based on the available evidence the recommendation is %s. %s",
		st.Ticker, price, st.Sentiment, st.Confidence*100, len(st.News), st.Recommendation, st.Insight)
}
