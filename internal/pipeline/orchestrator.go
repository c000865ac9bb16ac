package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/telemetry"
)

// Pipeline wires the stages in their fixed dependency order. Price and
// news have no inputs besides the ticker and run concurrently; the
// remaining stages run sequentially because each consumes its
// predecessors' output. Persist is always terminal.
type Pipeline struct {
	price      Stage
	news       Stage
	sequential []Stage

	log     *logrus.Entry
	metrics *telemetry.Metrics
}

// New assembles the pipeline. sentiment, trend, prediction, summary and
// persist execute in that order after price and news complete.
func New(price, news, sentiment, trend, prediction, summary, persist Stage, logger *logrus.Logger, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		price:      price,
		news:       news,
		sequential: []Stage{sentiment, trend, prediction, summary, persist},
		log:        logger.WithField("component", "pipeline"),
		metrics:    metrics,
	}
}

// Run executes a full analysis for ticker. The only error it returns is
// the empty-ticker precondition; every stage failure is absorbed into a
// degraded but complete state.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*AnalysisState, error) {
	st, err := NewAnalysisState(ticker)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	log := p.log.WithField("ticker", st.Ticker)
	log.Info("analysis run started")

	// Price and news are independent; run them concurrently and merge
	// both updates before any dependent stage reads the state.
	var wg sync.WaitGroup
	updates := make([]Update, 2)
	for i, stage := range []Stage{p.price, p.news} {
		wg.Add(1)
		go func(i int, stage Stage) {
			defer wg.Done()
			updates[i] = p.runStage(ctx, stage, st)
		}(i, stage)
	}
	wg.Wait()
	updates[0].apply(st, p.price.Name())
	updates[1].apply(st, p.news.Name())

	for _, stage := range p.sequential {
		p.runStage(ctx, stage, st).apply(st, stage.Name())
	}

	outcome := "ok"
	if len(st.Degraded) > 0 {
		outcome = "degraded"
	}
	p.metrics.ObserveRun(started, outcome)
	log.WithFields(logrus.Fields{
		"duration": time.Since(started).Round(time.Millisecond),
		"degraded": st.Degraded,
	}).Info("analysis run finished")
	return st, nil
}

// runStage executes one stage, converting any returned error into a
// degraded empty update so failures stay inside the stage boundary.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, st *AnalysisState) Update {
	started := time.Now()
	up, err := stage.Run(ctx, st)
	if err != nil {
		p.log.WithError(err).WithField("stage", stage.Name()).Error("stage failed")
		up = Update{Degraded: true}
	}
	p.metrics.ObserveStage(stage.Name(), started, up.Degraded)
	p.metrics.ObserveProviderFailures(up.FailedProviders)
	return up
}
