package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PriceStage fetches the current quote and a short daily close history.
// Provider failures never abort the run: the stage reports whatever
// subset it obtained and marks itself degraded when both calls came back
// empty.
type PriceStage struct {
	quotes      QuoteProvider
	historyDays int
	log         *logrus.Entry
	now         func() time.Time
}

func NewPriceStage(quotes QuoteProvider, historyDays int, logger *logrus.Logger) *PriceStage {
	if historyDays <= 0 {
		historyDays = 7
	}
	return &PriceStage{
		quotes:      quotes,
		historyDays: historyDays,
		log:         logger.WithField("stage", "price"),
		now:         time.Now,
	}
}

func (s *PriceStage) Name() string { return "price" }

func (s *PriceStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	var up Update

	spot, ok, err := s.quotes.SpotPrice(ctx, st.Ticker)
	if err != nil {
		s.log.WithError(err).Warn("spot price fetch failed")
		up.FailedProviders = append(up.FailedProviders, "twelvedata")
	} else if ok && spot > 0 {
		up.CurrentPrice = ptr(spot)
	}

	history, err := s.quotes.DailyCloseHistory(ctx, st.Ticker, s.historyDays)
	if err != nil {
		s.log.WithError(err).Warn("close history fetch failed")
		up.FailedProviders = append(up.FailedProviders, "twelvedata")
	}
	if len(history) == 0 && up.CurrentPrice != nil {
		// No history but a live quote: seed a one-point series so the
		// downstream stages still see a price curve.
		history = map[string]float64{
			s.now().UTC().Format("2006-01-02"): *up.CurrentPrice,
		}
	}
	if len(history) > 0 {
		up.Prices = history
	}

	up.Degraded = up.CurrentPrice == nil && len(history) == 0
	return up, nil
}
