// Package risk scores hazards for one observation and records the outcome.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain/feature"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	"github.com/kailas-cloud/agroverse/internal/metrics"
)

// Result is the outcome of scoring every hazard for one observation.
type Result struct {
	Batch     hazard.Batch
	Aggregate hazard.Aggregate
}

// Assessment returns the assessment of the given kind from the batch.
func (r Result) Assessment(k hazard.Kind) (hazard.Assessment, bool) {
	for _, a := range r.Batch.Assessments {
		if a.Kind() == k {
			return a, true
		}
	}
	return hazard.Assessment{}, false
}

// DefaultSinkTimeout bounds the time the journal and alert sinks may add to a request.
const DefaultSinkTimeout = 2 * time.Second

// Service runs the hazard scorers and forwards multi-hazard batches to the sinks.
type Service struct {
	journal     Journal
	alerts      AlertPublisher
	alertMin    hazard.Level
	sinkTimeout time.Duration
	clock       clockwork.Clock
	newID       func() uuid.UUID
	logger      *zap.Logger
}

// New creates a Service without sinks.
func New(logger *zap.Logger) *Service {
	return &Service{
		alertMin:    hazard.High,
		sinkTimeout: DefaultSinkTimeout,
		clock:       clockwork.NewRealClock(),
		newID:       uuid.New,
		logger:      logger,
	}
}

// WithJournal attaches the assessment journal.
func (s *Service) WithJournal(j Journal) *Service {
	s.journal = j
	return s
}

// WithAlerts attaches the alert publisher; only assessments at min or above are sent.
func (s *Service) WithAlerts(p AlertPublisher, min hazard.Level) *Service {
	s.alerts = p
	s.alertMin = min
	return s
}

// WithSinkTimeout sets the deadline shared by the journal and alert sinks.
// Non-positive values keep the default.
func (s *Service) WithSinkTimeout(d time.Duration) *Service {
	if d > 0 {
		s.sinkTimeout = d
	}
	return s
}

// WithClock overrides the time source for batch timestamps.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.clock = c
	return s
}

// Score normalizes the raw record and runs a single scorer.
func (s *Service) Score(_ context.Context, kind hazard.Kind, raw map[string]any) (hazard.Assessment, error) {
	scorer, ok := hazard.ScorerFor(kind)
	if !ok {
		return hazard.Assessment{}, fmt.Errorf("unknown hazard kind %q", kind)
	}

	fs, err := feature.Normalize(raw)
	if err != nil {
		return hazard.Assessment{}, fmt.Errorf("normalize features: %w", err)
	}

	a := scorer(fs)
	metrics.HazardAssessmentsTotal.WithLabelValues(string(a.Kind()), string(a.Level())).Inc()
	return a, nil
}

// ScoreAll normalizes the raw record once, runs every scorer and combines them.
// The batch goes to the journal and, filtered by level, to the alert stream.
// Sink failures are logged and never fail the call.
func (s *Service) ScoreAll(ctx context.Context, raw map[string]any) (Result, error) {
	fs, err := feature.Normalize(raw)
	if err != nil {
		return Result{}, fmt.Errorf("normalize features: %w", err)
	}
	return s.Assess(ctx, fs)
}

// Assess scores every hazard for an already normalized observation.
func (s *Service) Assess(ctx context.Context, fs feature.FeatureSet) (Result, error) {
	frost := hazard.ScoreFrost(fs)
	drought := hazard.ScoreDrought(fs)
	pest := hazard.ScorePest(fs)

	agg, err := hazard.Combine(&frost, &drought, &pest)
	if err != nil {
		return Result{}, fmt.Errorf("combine: %w", err)
	}

	batch := hazard.Batch{
		ID:          s.newID().String(),
		Features:    fs,
		Assessments: []hazard.Assessment{frost, drought, pest},
		AssessedAt:  s.clock.Now().UTC(),
	}
	for i := range batch.Assessments {
		a := &batch.Assessments[i]
		metrics.HazardAssessmentsTotal.WithLabelValues(string(a.Kind()), string(a.Level())).Inc()
	}

	s.record(ctx, batch)

	return Result{Batch: batch, Aggregate: agg}, nil
}

// record runs detached from the caller's cancellation but under sinkTimeout,
// so a slow journal or broker delays the result by at most that long.
func (s *Service) record(ctx context.Context, batch hazard.Batch) {
	if s.journal == nil && s.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
	defer cancel()

	if s.journal != nil {
		if err := s.journal.Append(ctx, batch); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues("journal").Inc()
			s.logger.Warn("Journal append failed", zap.String("batch_id", batch.ID), zap.Error(err))
		}
	}

	if s.alerts == nil {
		return
	}
	alerting := batch.AtLeast(s.alertMin)
	if len(alerting.Assessments) == 0 {
		return
	}
	if err := s.alerts.Publish(ctx, alerting); err != nil {
		metrics.SinkErrorsTotal.WithLabelValues("alerts").Inc()
		s.logger.Warn("Alert publish failed",
			zap.String("batch_id", batch.ID),
			zap.Int("alerts", len(alerting.Assessments)),
			zap.Error(err),
		)
	}
}
