// Package pipeline runs the multi-stage ticker analysis: price, news,
// sentiment, trend, prediction, summary and persistence. Stages consume a
// shared AnalysisState and produce partial updates that the orchestrator
// merges; no stage writes fields owned by another stage.
package pipeline

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingTicker is the single hard precondition failure: an empty
// ticker aborts the run before any stage executes. Everything else
// degrades.
var ErrMissingTicker = errors.New("pipeline: no ticker provided")

// SentimentLabel classifies overall news sentiment.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "Bullish"
	SentimentBearish SentimentLabel = "Bearish"
	SentimentNeutral SentimentLabel = "Neutral"
)

// Recommendation is the terminal investment call.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "Buy"
	RecommendationHold Recommendation = "Hold"
	RecommendationSell Recommendation = "Sell"
)

// NewsItem is one scored, deduplicated news result. Insertion order in
// AnalysisState.News is relevance order after scoring.
type NewsItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// AnalysisState is the single record threaded through the pipeline. A
// fresh instance is allocated per run and owned exclusively by that run.
type AnalysisState struct {
	Ticker string `json:"ticker"`

	News []NewsItem `json:"news"`

	// CurrentPrice and Prices are the quote-provider view; Trend is the
	// independently text-mined series. They are reconciled at render time.
	CurrentPrice *float64           `json:"price"`
	Prices       map[string]float64 `json:"prices"`
	Trend        map[string]float64 `json:"trend"`

	Sentiment  SentimentLabel `json:"sentiment"`
	Confidence float64        `json:"confidence"`

	Recommendation           Recommendation `json:"recommendation"`
	Insight                  string         `json:"insight"`
	RecommendationConfidence float64        `json:"recommendation_confidence"`

	Summary string `json:"summary"`

	// PersistenceID is set only after a successful durable write. Empty
	// means "not persisted", which is never an error by itself.
	PersistenceID string `json:"log_id"`

	// Degraded lists the stages that fell back to their documented
	// default output.
	Degraded []string `json:"degraded,omitempty"`
}

// NewAnalysisState allocates a run-local state with only the normalized
// ticker populated.
func NewAnalysisState(ticker string) (*AnalysisState, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrMissingTicker
	}
	return &AnalysisState{
		Ticker:         ticker,
		News:           []NewsItem{},
		Prices:         map[string]float64{},
		Trend:          map[string]float64{},
		Sentiment:      SentimentNeutral,
		Recommendation: RecommendationHold,
	}, nil
}

// Update is a stage's partial contribution. Nil and zero-length fields
// are left untouched on merge, so every stage only sets the fields it
// owns.
type Update struct {
	CurrentPrice *float64
	Prices       map[string]float64
	News         []NewsItem
	Sentiment    *SentimentLabel
	Confidence   *float64
	Trend        map[string]float64

	Recommendation           *Recommendation
	Insight                  *string
	RecommendationConfidence *float64

	Summary       *string
	PersistenceID *string

	// Degraded marks that the producing stage returned its fallback
	// output rather than live data.
	Degraded bool

	// FailedProviders names the upstream providers whose calls errored
	// while producing this update, one entry per failed call. The
	// orchestrator folds them into the provider error counter; merge
	// ignores them.
	FailedProviders []string
}

// apply merges the update into the state. Field ownership is exclusive
// per stage, so merging is plain assignment.
func (u Update) apply(st *AnalysisState, stage string) {
	if u.CurrentPrice != nil {
		st.CurrentPrice = u.CurrentPrice
	}
	if u.Prices != nil {
		st.Prices = u.Prices
	}
	if u.News != nil {
		st.News = u.News
	}
	if u.Sentiment != nil {
		st.Sentiment = *u.Sentiment
	}
	if u.Confidence != nil {
		st.Confidence = *u.Confidence
	}
	if u.Trend != nil {
		st.Trend = u.Trend
	}
	if u.Recommendation != nil {
		st.Recommendation = *u.Recommendation
	}
	if u.Insight != nil {
		st.Insight = *u.Insight
	}
	if u.RecommendationConfidence != nil {
		st.RecommendationConfidence = *u.RecommendationConfidence
	}
	if u.Summary != nil {
		st.Summary = *u.Summary
	}
	if u.PersistenceID != nil {
		st.PersistenceID = *u.PersistenceID
	}
	if u.Degraded {
		st.Degraded = append(st.Degraded, stage)
	}
}

// Stage is one unit of the pipeline with exclusive ownership of specific
// output fields.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *AnalysisState) (Update, error)
}

func ptr[T any](v T) *T { return &v }
