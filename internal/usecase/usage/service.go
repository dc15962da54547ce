package usage

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	domusage "github.com/kailas-cloud/agroverse/internal/domain/usage"
)

// Service handles generation usage reporting.
type Service struct {
	br    BudgetReader
	clock clockwork.Clock
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, clock: clockwork.NewRealClock()}
}

// WithClock overrides the time source used for period boundaries.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.clock = c
	return s
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.clock.Now().UTC()
	var start, end time.Time
	var limit, used, remaining int64

	switch period {
	case domusage.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	default:
		period = domusage.PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			remaining = s.br.RemainingDaily()
		}
	}

	// The tracker reports -1 for unlimited; the report uses limit 0 instead.
	if limit == 0 {
		remaining = 0
	}

	b := domusage.NewBudget(limit, remaining, end.UnixMilli())
	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), used, b)
}
