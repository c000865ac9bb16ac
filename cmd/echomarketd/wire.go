package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/providers/openai"
	"github.com/reachskumar/echomarket/internal/providers/tavily"
	"github.com/reachskumar/echomarket/internal/providers/twelvedata"
	"github.com/reachskumar/echomarket/internal/store"
	"github.com/reachskumar/echomarket/internal/telemetry"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.General.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.General.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// buildPipeline assembles the full analysis pipeline from configuration.
// st may be nil when no database is configured.
func buildPipeline(cfg *config.Config, st *store.Store, log *logrus.Logger, metrics *telemetry.Metrics) *pipeline.Pipeline {
	quotes := twelvedata.New(cfg.Providers.TwelveData, log)
	search := tavily.New(cfg.Providers.Tavily, log)
	llm := openai.New(cfg.LLM)

	opts := pipeline.LLMOptions{
		Primary:  pipeline.ModelTier{Model: cfg.LLM.PrimaryModel, Temperature: 0.2, MaxTokens: 600},
		Fallback: pipeline.ModelTier{Model: cfg.LLM.FallbackModel, Temperature: 0.2, MaxTokens: 600},
		Retry: pipeline.RetryOptions{
			MaxAttempts:    cfg.LLM.MaxAttempts,
			InitialBackoff: cfg.LLM.InitialBackoff,
		},
	}

	var docs pipeline.DocumentStore
	if st != nil {
		docs = st
	}

	pc := cfg.Pipeline
	return pipeline.New(
		pipeline.NewPriceStage(quotes, pc.HistoryDays, log),
		pipeline.NewNewsStage(search, pc.NewsMaxResults, pc.NewsCap, log),
		pipeline.NewSentimentStage(llm, opts, pc.MinNewsItems, log),
		pipeline.NewTrendStage(search, pc.TrendMaxResults, pc.WindowDays, log),
		pipeline.NewPredictionStage(llm, opts, log),
		pipeline.NewSummaryStage(llm, opts, log),
		pipeline.NewPersistStage(docs, log),
		log,
		metrics,
	)
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) *store.Store {
	st, err := store.New(ctx, cfg.Storage.Postgres)
	if err != nil {
		log.WithError(err).Warn("postgres unavailable, continuing without persistence")
		return nil
	}
	return st
}
