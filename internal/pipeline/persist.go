package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PersistStage writes the finished analysis to the durable store. It is
// always last and never blocks a response: with no store configured or
// a failed write the state simply ends up without a persistence id.
type PersistStage struct {
	store DocumentStore
	log   *logrus.Entry
	now   func() time.Time
}

func NewPersistStage(store DocumentStore, logger *logrus.Logger) *PersistStage {
	return &PersistStage{store: store, log: logger.WithField("stage", "persist"), now: time.Now}
}

func (s *PersistStage) Name() string { return "persist" }

func (s *PersistStage) Run(ctx context.Context, st *AnalysisState) (Update, error) {
	if s.store == nil {
		s.log.Info("no store configured, skipping persistence")
		return Update{Degraded: true}, nil
	}

	doc := AnalysisDocument{
		QueryID:   uuid.NewString(),
		Ticker:    st.Ticker,
		Timestamp: s.now().UTC(),
		State:     st,
	}
	id, err := s.store.InsertAnalysis(ctx, doc)
	if err != nil {
		s.log.WithError(err).Warn("analysis persistence failed")
		return Update{Degraded: true}, nil
	}
	return Update{PersistenceID: &id}, nil
}
