package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates no knowledge is loaded; nothing can be answered.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// defaultCheckTimeout bounds each component probe.
const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status            Status
	Checks            map[string]CheckResult
	KnowledgeBaseSize int
	Model             string
}

// Service coordinates health checks.
type Service struct {
	knowledge  KnowledgeSizer
	generation GenerationChecker
	model      string
	stores     map[string]Pinger
	timeout    time.Duration
}

// New creates a Service. generation can be nil.
func New(knowledge KnowledgeSizer, generation GenerationChecker, model string) *Service {
	return &Service{
		knowledge:  knowledge,
		generation: generation,
		model:      model,
		stores:     make(map[string]Pinger),
		timeout:    defaultCheckTimeout,
	}
}

// WithStore registers an optional backing store under a check name (cache, journal).
func (s *Service) WithStore(name string, p Pinger) *Service {
	if p != nil {
		s.stores[name] = p
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		checks[name] = s.probe(ctx, s.stores[name].Ping)
	}

	if s.generation != nil {
		checks["generation"] = s.probe(ctx, s.generation.HealthCheck)
	}

	size := 0
	if s.knowledge != nil {
		size = s.knowledge.Len()
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if size == 0 {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, KnowledgeBaseSize: size, Model: s.model}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
