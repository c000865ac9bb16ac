package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/providers/openai"
	"github.com/reachskumar/echomarket/internal/textmine"
)

// trendDirection summarizes a dated price series as rising, falling or
// flat by comparing the first and last values in date order. Moves
// under two percent count as flat.
func trendDirection(series map[string]float64) string {
	dates := textmine.SortedDates(series)
	if len(dates) < 2 {
		return "flat"
	}
	first, last := series[dates[0]], series[dates[len(dates)-1]]
	if first <= 0 {
		return "flat"
	}
	change := (last - first) / first
	switch {
	case change > 0.02:
		return "up"
	case change < -0.02:
		return "down"
	default:
		return "flat"
	}
}

// PredictionStage turns the accumulated evidence into a Buy/Hold/Sell
// call with a short insight. When the model cannot be reached or keeps
// returning malformed output, a conservative rule takes over: Hold
// unless sentiment and the mined trend strongly agree.
type PredictionStage struct {
	llm  CompletionProvider
	opts LLMOptions
	log  *logrus.Entry
}

func NewPredictionStage(llm CompletionProvider, opts LLMOptions, logger *logrus.Logger) *PredictionStage {
	return &PredictionStage{llm: llm, opts: opts, log: logger.WithField("stage", "prediction")}
}

func (s *PredictionStage) Name() string { return "prediction" }

type predictionReply struct {
	Recommendation *string  `json:"recommendation"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      *string  `json:"reasoning"`
}

func (s *PredictionStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	if !s.llm.Configured() {
		s.log.Warn("llm not configured, using rule-based prediction")
		return s.ruleBased(st), nil
	}

	prompt := predictionPrompt(st)
	reply, err := Call(ctx, s.opts.Retry, s.opts.Primary, &s.opts.Fallback,
		func(ctx context.Context, tier ModelTier) (predictionReply, error) {
			text, err := s.llm.Complete(ctx, []openai.Message{
				{Role: "system", Content: "You are a cautious equity analyst. Respond with JSON only."},
				{Role: "user", Content: prompt},
			}, tier.Model, tier.Temperature, tier.MaxTokens)
			if err != nil {
				return predictionReply{}, err
			}
			var out predictionReply
			if err := decodeJSONSpan(text, &out); err != nil {
				return predictionReply{}, err
			}
			return out, nil
		},
		func(r predictionReply) error {
			if r.Recommendation == nil || r.Confidence == nil || r.Reasoning == nil {
				return fmt.Errorf("missing required keys in prediction reply")
			}
			return nil
		})
	if err != nil {
		s.log.WithError(err).Warn("prediction degraded to rule-based call")
		up := s.ruleBased(st)
		up.FailedProviders = []string{"openai"}
		return up, nil
	}

	rec := normalizeRecommendation(*reply.Recommendation)
	conf := clamp01(*reply.Confidence)
	return Update{
		Recommendation:           &rec,
		Insight:                  reply.Reasoning,
		RecommendationConfidence: &conf,
	}, nil
}

// ruleBased is the deterministic fallback. It only leaves Hold when the
// news sentiment and the mined price trend point the same way.
func (s *PredictionStage) ruleBased(st *AnalysisState) Update {
	dir := trendDirection(st.Trend)

	rec := RecommendationHold
	insight := fmt.Sprintf("Insufficient signal alignment for %s; holding is the conservative position.", st.Ticker)
	switch {
	case st.Sentiment == SentimentBullish && dir == "up":
		rec = RecommendationBuy
		insight = fmt.Sprintf("Bullish news sentiment and a rising recent price trend both favor %s.", st.Ticker)
	case st.Sentiment == SentimentBearish && dir == "down":
		rec = RecommendationSell
		insight = fmt.Sprintf("Bearish news sentiment and a falling recent price trend both weigh on %s.", st.Ticker)
	}

	return Update{
		Recommendation:           &rec,
		Insight:                  &insight,
		RecommendationConfidence: ptr(0.5),
		Degraded:                 true,
	}
}

func predictionPrompt(st *AnalysisState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate %s given the following evidence.\n\n", st.Ticker)
	if st.CurrentPrice != nil {
		fmt.Fprintf(&b, "Current price: %.2f\n", *st.CurrentPrice)
	}
	fmt.Fprintf(&b, "News sentiment: %s (confidence %.2f)\n", st.Sentiment, st.Confidence)
	fmt.Fprintf(&b, "Recent price trend: %s over %d mined data points\n", trendDirection(st.Trend), len(st.Trend))
	if len(st.News) > 0 {
		b.WriteString("Top headlines:\n")
		for i, item := range st.News {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", item.Title)
		}
	}
	b.WriteString("\nRespond with a JSON object: {\"recommendation\": \"Buy\"|\"Hold\"|\"Sell\", \"confidence\": 0.0-1.0, \"reasoning\": \"...\"}")
	return b.String()
}

func normalizeRecommendation(raw string) Recommendation {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "strong buy":
		return RecommendationBuy
	case "sell", "strong sell":
		return RecommendationSell
	default:
		return RecommendationHold
	}
}
