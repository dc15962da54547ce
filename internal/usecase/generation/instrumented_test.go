package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
	"github.com/kailas-cloud/agroverse/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

type mockGenerator struct {
	reply  domain.Reply
	err    error
	calls  int
	health error
}

func (m *mockGenerator) Generate(_ context.Context, _ domain.Prompt) (domain.Reply, error) {
	m.calls++
	return m.reply, m.err
}

func (m *mockGenerator) HealthCheck(_ context.Context) error { return m.health }

func TestInstrumentedGenerator_Success(t *testing.T) {
	inner := &mockGenerator{reply: domain.Reply{Text: "Aplique riego.", ModelID: "m", PromptTokens: 70, TotalTokens: 100}}
	p := NewInstrumentedGenerator(inner, "test-ok", "m", nil, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	reply, err := p.Generate(ctx, domain.Prompt{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "Aplique riego." {
		t.Fatalf("Text = %q", reply.Text)
	}
	if usage.TotalTokens != 100 {
		t.Errorf("usage tokens = %d", usage.TotalTokens)
	}
	if got := testutil.ToFloat64(metrics.GenerationTokensTotal.WithLabelValues("test-ok", "m", "total")); got != 100 {
		t.Errorf("tokens metric = %v", got)
	}
	if got := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("test-ok", "m", "ok")); got != 1 {
		t.Errorf("requests metric = %v", got)
	}
}

func TestInstrumentedGenerator_CachedReply(t *testing.T) {
	inner := &mockGenerator{reply: domain.Reply{Text: "hit", Cached: true}}
	budget := NewBudgetTracker("test-cached", 1000, 0, BudgetActionReject, zap.NewNop())
	p := NewInstrumentedGenerator(inner, "test-cached", "m", budget, zap.NewNop())

	if _, err := p.Generate(context.Background(), domain.Prompt{Text: "q"}); err != nil {
		t.Fatal(err)
	}
	if budget.RemainingDaily() != 1000 {
		t.Errorf("cache hits must not spend budget, remaining %d", budget.RemainingDaily())
	}
	if got := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("test-cached", "m", "cached")); got != 1 {
		t.Errorf("cached requests metric = %v", got)
	}
}

func TestInstrumentedGenerator_Error(t *testing.T) {
	inner := &mockGenerator{err: fmt.Errorf("dial: %w", domain.ErrGenerationUnavailable)}
	p := NewInstrumentedGenerator(inner, "test-err", "m", nil, zap.NewNop())

	_, err := p.Generate(context.Background(), domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.GenerationErrorsTotal.WithLabelValues("test-err", "m", "unavailable")); got != 1 {
		t.Errorf("errors metric = %v", got)
	}
}

func TestInstrumentedGenerator_BudgetRejection(t *testing.T) {
	budget := NewBudgetTracker("test-budget", 100, 0, BudgetActionReject, zap.NewNop())
	budget.Record(100)

	inner := &mockGenerator{reply: domain.Reply{Text: "x"}}
	p := NewInstrumentedGenerator(inner, "test-budget", "m", budget, zap.NewNop())

	_, err := p.Generate(context.Background(), domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationBudgetExceeded) {
		t.Fatalf("expected domain.ErrGenerationBudgetExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Error("inner generator must not be called over budget")
	}
	if got := testutil.ToFloat64(metrics.GenerationErrorsTotal.WithLabelValues("test-budget", "m", "budget")); got != 1 {
		t.Errorf("budget errors metric = %v", got)
	}
}

func TestInstrumentedGenerator_RecordsBudget(t *testing.T) {
	budget := NewBudgetTracker("test-record", 1000000, 10000000, BudgetActionReject, zap.NewNop())
	inner := &mockGenerator{reply: domain.Reply{Text: "x", PromptTokens: 400, TotalTokens: 500}}
	p := NewInstrumentedGenerator(inner, "test-record", "m", budget, zap.NewNop())

	if _, err := p.Generate(context.Background(), domain.Prompt{Text: "q"}); err != nil {
		t.Fatal(err)
	}

	if budget.RemainingDaily() != 1000000-500 {
		t.Errorf("daily remaining = %d", budget.RemainingDaily())
	}
	gauge := metrics.GenerationBudgetTokensRemaining.WithLabelValues("test-record", "monthly")
	if got := testutil.ToFloat64(gauge); got != 10000000-500 {
		t.Errorf("monthly gauge = %v", got)
	}
}

func TestInstrumentedGenerator_HealthCheck(t *testing.T) {
	inner := &mockGenerator{health: domain.ErrGenerationUnavailable}
	p := NewInstrumentedGenerator(inner, "test-health", "m", nil, zap.NewNop())

	if err := p.HealthCheck(context.Background()); !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrGenerationTimeout, "timeout"},
		{fmt.Errorf("x: %w", domain.ErrGenerationMalformed), "malformed"},
		{domain.ErrImageNotSupported, "image_not_supported"},
		{domain.ErrGenerationBudgetExceeded, "budget"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
