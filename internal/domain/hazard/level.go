package hazard

import "math"

// Kind identifies the hazard an assessment describes.
type Kind string

const (
	Frost   Kind = "frost"
	Drought Kind = "drought"
	Pest    Kind = "pest"
)

// Kinds lists every hazard in reporting order.
func Kinds() []Kind { return []Kind{Frost, Drought, Pest} }

// ParseKind validates a hazard name.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case Frost, Drought, Pest:
		return Kind(s), true
	default:
		return "", false
	}
}

// Level is the categorical risk band.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// Rank orders levels from low (0) to critical (3). Unknown levels rank -1.
func (l Level) Rank() int {
	switch l {
	case Low:
		return 0
	case Medium:
		return 1
	case High:
		return 2
	case Critical:
		return 3
	default:
		return -1
	}
}

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	if l.Rank() < 0 {
		return "", false
	}
	return l, true
}

// Threshold maps a minimum probability to a level.
type Threshold struct {
	Min   float64
	Level Level
}

// Banding is an ordered threshold table, highest first.
// A probability falls in the first band whose Min it reaches; otherwise Low.
type Banding []Threshold

// Classify returns the band for p.
func (b Banding) Classify(p float64) Level {
	for _, t := range b {
		if p >= t.Min {
			return t.Level
		}
	}
	return Low
}

var (
	// fourBand is shared by frost and drought.
	fourBand = Banding{
		{Min: 0.7, Level: Critical},
		{Min: 0.5, Level: High},
		{Min: 0.3, Level: Medium},
	}
	// threeBand is used by pest and the aggregate.
	threeBand = Banding{
		{Min: 0.6, Level: High},
		{Min: 0.4, Level: Medium},
	}
)

// settle clamps to [0,1] and drops float accumulation noise below 1e-9.
func settle(p float64) float64 {
	p = math.Round(p*1e9) / 1e9
	return math.Max(0, math.Min(1, p))
}
