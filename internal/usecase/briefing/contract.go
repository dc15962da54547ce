package briefing

import (
	"context"

	"github.com/kailas-cloud/agroverse/internal/domain/feature"
	"github.com/kailas-cloud/agroverse/internal/usecase/advisory"
	"github.com/kailas-cloud/agroverse/internal/usecase/risk"
)

// RiskAssessor scores every hazard for one observation.
type RiskAssessor interface {
	Assess(ctx context.Context, fs feature.FeatureSet) (risk.Result, error)
}

// Advisor answers a question grounded in the knowledge corpus.
type Advisor interface {
	Chat(ctx context.Context, in advisory.ChatInput) (advisory.ChatOutcome, error)
}
