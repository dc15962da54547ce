package hazard

import "errors"

// ErrNoAssessments signals an aggregate requested without any input.
var ErrNoAssessments = errors.New("no assessments to combine")

// Aggregate is the overall risk across the supplied hazards.
type Aggregate struct {
	score float64
	level Level
	count int
}

// Combine averages the probabilities of the non-nil assessments and bands the
// mean on the three-level scale.
func Combine(frost, drought, pest *Assessment) (Aggregate, error) {
	var sum float64
	var n int
	for _, a := range []*Assessment{frost, drought, pest} {
		if a == nil {
			continue
		}
		sum += a.probability
		n++
	}
	if n == 0 {
		return Aggregate{}, ErrNoAssessments
	}
	score := settle(sum / float64(n))
	return Aggregate{score: score, level: threeBand.Classify(score), count: n}, nil
}

// Score returns the mean probability.
func (a Aggregate) Score() float64 { return a.score }

// Level returns the band of the mean.
func (a Aggregate) Level() Level { return a.level }

// Count returns how many assessments contributed.
func (a Aggregate) Count() int { return a.count }
