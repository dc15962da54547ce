// Package briefing combines hazard scoring with an advisory answer about the risks found.
package briefing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domadvisory "github.com/kailas-cloud/agroverse/internal/domain/advisory"
	"github.com/kailas-cloud/agroverse/internal/domain/feature"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	"github.com/kailas-cloud/agroverse/internal/usecase/advisory"
	"github.com/kailas-cloud/agroverse/internal/usecase/risk"
)

// DefaultQuestion is asked when the caller supplies none.
const DefaultQuestion = "¿Qué acciones debo tomar para proteger mi cultivo?"

// topics phrase each hazard with words the corpus keywords match.
var topics = map[hazard.Kind]string{
	hazard.Frost:   "riesgo de heladas por baja temperatura",
	hazard.Drought: "riesgo de sequía y necesidad de riego",
	hazard.Pest:    "riesgo de plagas y su control",
}

var levelNames = map[hazard.Level]string{
	hazard.Low:      "bajo",
	hazard.Medium:   "medio",
	hazard.High:     "alto",
	hazard.Critical: "crítico",
}

// Input is one briefing request.
type Input struct {
	Features map[string]any
	Question string
	TopK     int
	User     *domadvisory.UserContext
}

// Briefing is the scored observation plus the advisory about it.
type Briefing struct {
	ID       string
	Risk     risk.Result
	Query    string
	Advisory advisory.ChatOutcome
}

// Service runs hazard scoring first, then the advisory pipeline.
type Service struct {
	risk    RiskAssessor
	advisor Advisor
	focus   hazard.Level
	logger  *zap.Logger
}

// New creates a Service. Hazards at medium or above shape the advisory question.
func New(r RiskAssessor, a Advisor, logger *zap.Logger) *Service {
	return &Service{risk: r, advisor: a, focus: hazard.Medium, logger: logger}
}

// Run scores the observation and asks for advice on the elevated hazards.
// Scoring errors fail the call; a generation failure is carried in the advisory outcome.
func (s *Service) Run(ctx context.Context, in Input) (Briefing, error) {
	fs, err := feature.Normalize(in.Features)
	if err != nil {
		return Briefing{}, fmt.Errorf("normalize features: %w", err)
	}

	res, err := s.risk.Assess(ctx, fs)
	if err != nil {
		return Briefing{}, fmt.Errorf("assess: %w", err)
	}

	query := Question(in.Question, fs.CropType, res.Batch.AtLeast(s.focus).Assessments)

	user := in.User
	if user == nil && fs.Has(feature.CropType) {
		user = &domadvisory.UserContext{Crops: []string{fs.CropType}}
	}

	out, err := s.advisor.Chat(ctx, advisory.ChatInput{Query: query, TopK: in.TopK, User: user})
	if err != nil {
		return Briefing{}, fmt.Errorf("advise: %w", err)
	}
	if !out.Answered() {
		s.logger.Warn("Briefing delivered without generated advice",
			zap.String("briefing_id", res.Batch.ID),
			zap.Error(out.GenerationErr),
		)
	}

	return Briefing{ID: res.Batch.ID, Risk: res, Query: query, Advisory: out}, nil
}

// Question appends the elevated hazards to the farmer's question.
func Question(base, crop string, elevated []hazard.Assessment) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultQuestion
	}
	if len(elevated) == 0 {
		return base
	}

	parts := make([]string, 0, len(elevated))
	for _, a := range elevated {
		parts = append(parts, fmt.Sprintf("%s (nivel %s, %.0f%%)",
			topics[a.Kind()], levelNames[a.Level()], a.Probability()*100))
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(" Se detectó ")
	b.WriteString(strings.Join(parts, "; "))
	if crop != "" && crop != feature.DefaultCropType {
		b.WriteString(" en cultivo de ")
		b.WriteString(crop)
	}
	b.WriteString(".")
	return b.String()
}
