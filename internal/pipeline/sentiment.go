package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/openai"
)

// ModelTier is one model configuration for a resilient LLM call. The
// fallback tier is usually a cheaper, more reliable model.
type ModelTier struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLMOptions bundle the model tiers and retry policy shared by the
// LLM-backed stages.
type LLMOptions struct {
	Primary  ModelTier
	Fallback ModelTier
	Retry    RetryOptions
}

// SentimentStage classifies the collected news as Bullish, Bearish or
// Neutral with a confidence. With fewer than minItems news entries the
// model is not consulted at all: sparse evidence yields Neutral/0.0
// directly.
type SentimentStage struct {
	llm      CompletionProvider
	opts     LLMOptions
	minItems int
	log      *logrus.Entry
}

func NewSentimentStage(llm CompletionProvider, opts LLMOptions, minItems int, logger *logrus.Logger) *SentimentStage {
	if minItems <= 0 {
		minItems = 3
	}
	return &SentimentStage{
		llm:      llm,
		opts:     opts,
		minItems: minItems,
		log:      logger.WithField("stage", "sentiment"),
	}
}

func (s *SentimentStage) Name() string { return "sentiment" }

type sentimentReply struct {
	Sentiment  *string  `json:"sentiment"`
	Confidence *float64 `json:"confidence"`
}

func (s *SentimentStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	neutral := Update{
		Sentiment:  ptr(SentimentNeutral),
		Confidence: ptr(0.0),
		Degraded:   true,
	}
	if len(st.News) < s.minItems {
		s.log.WithField("news_items", len(st.News)).Info("too few news items for sentiment")
		return neutral, nil
	}
	if !s.llm.Configured() {
		s.log.Warn("llm not configured, skipping sentiment")
		return neutral, nil
	}

	prompt := sentimentPrompt(st)
	reply, err := Call(ctx, s.opts.Retry, s.opts.Primary, &s.opts.Fallback,
		func(ctx context.Context, tier ModelTier) (sentimentReply, error) {
			text, err := s.llm.Complete(ctx, []openai.Message{
				{Role: "system", Content: "You are a financial sentiment analyst. Respond with JSON only."},
				{Role: "user", Content: prompt},
			}, tier.Model, tier.Temperature, tier.MaxTokens)
			if err != nil {
				return sentimentReply{}, err
			}
			var out sentimentReply
			if err := decodeJSONSpan(text, &out); err != nil {
				return sentimentReply{}, err
			}
			return out, nil
		},
		func(r sentimentReply) error {
			if r.Sentiment == nil || r.Confidence == nil {
				return fmt.Errorf("missing required keys in sentiment reply")
			}
			return nil
		})
	if err != nil {
		s.log.WithError(err).Warn("sentiment analysis degraded to neutral")
		neutral.FailedProviders = []string{"openai"}
		return neutral, nil
	}

	label := normalizeSentiment(*reply.Sentiment)
	conf := clamp01(*reply.Confidence)
	return Update{Sentiment: &label, Confidence: &conf}, nil
}

func sentimentPrompt(st *AnalysisState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the overall market sentiment for %s from these headlines:\n\n", st.Ticker)
	for i, item := range st.News {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, item.Title, item.Snippet)
	}
	b.WriteString("\nRespond with a JSON object: {\"sentiment\": \"Bullish\"|\"Bearish\"|\"Neutral\", \"confidence\": 0.0-1.0}")
	return b.String()
}

func normalizeSentiment(raw string) SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish", "positive":
		return SentimentBullish
	case "bearish", "negative":
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
