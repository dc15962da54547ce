package hazard

import (
	"time"

	"github.com/kailas-cloud/agroverse/internal/domain/feature"
)

// Batch groups the assessments produced from one observation.
type Batch struct {
	ID          string
	Features    feature.FeatureSet
	Assessments []Assessment
	AssessedAt  time.Time
}

// AtLeast returns a copy of the batch keeping only assessments banded at min or above.
func (b Batch) AtLeast(min Level) Batch {
	out := b
	out.Assessments = nil
	for _, a := range b.Assessments {
		if a.level.Rank() >= min.Rank() {
			out.Assessments = append(out.Assessments, a)
		}
	}
	return out
}
