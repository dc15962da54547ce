package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
	"github.com/kailas-cloud/agroverse/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedGenerator wraps a Generator with budget enforcement, metrics and logging.
// It sits outermost in the chain so every provider is measured the same way.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator with budget and observability. budget may be nil.
func NewInstrumentedGenerator(
	inner domain.Generator, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Generate checks the budget, delegates to the inner generator, and records usage.
func (p *InstrumentedGenerator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error) {
	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Error(err),
			)
			p.countError(err)
			return domain.Reply{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	reply, err := p.inner.Generate(ctx, prompt)
	duration := time.Since(start)

	metrics.GenerationRequestDuration.WithLabelValues(p.provider, p.model).Observe(duration.Seconds())

	if err != nil {
		p.logger.Error("Generation request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Bool("image", prompt.HasImage()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		p.countError(err)
		return domain.Reply{}, fmt.Errorf("generate: %w", err)
	}

	status := "ok"
	if reply.Cached {
		status = "cached"
	}
	metrics.GenerationRequestsTotal.WithLabelValues(p.provider, p.model, status).Inc()

	if reply.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(p.provider, p.model, "prompt").Add(float64(reply.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(p.provider, p.model, "total").Add(float64(reply.TotalTokens))
		domain.UsageFromContext(ctx).AddTokens(reply.TotalTokens)
		p.recordBudget(int64(reply.TotalTokens))
	}

	p.logger.Debug("Generation request completed",
		zap.String("provider", p.provider),
		zap.String("model", reply.ModelID),
		zap.Bool("cached", reply.Cached),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", reply.PromptTokens),
		zap.Int("total_tokens", reply.TotalTokens),
	)

	return reply, nil
}

// HealthCheck delegates to the inner generator when it supports health checks.
func (p *InstrumentedGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check: %w", err)
		}
	}
	return nil
}

func (p *InstrumentedGenerator) recordBudget(tokens int64) {
	if p.budget == nil {
		return
	}
	p.budget.Record(tokens)
	remaining := metrics.GenerationBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}

func (p *InstrumentedGenerator) countError(err error) {
	errType := errorType(err)
	metrics.GenerationRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
	metrics.GenerationErrorsTotal.WithLabelValues(p.provider, p.model, errType).Inc()
}

// errorType maps a gateway failure to a low-cardinality metric label.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrGenerationBudgetExceeded):
		return "budget"
	case errors.Is(err, domain.ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrGenerationMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrImageNotSupported):
		return "image_not_supported"
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
