package hazard

// Bracket is one rung of a mutually exclusive signal: the first rung whose
// Test holds contributes its Weight and Factor, the rest are skipped.
type Bracket struct {
	Test   func(v float64) bool
	Weight float64
	Factor string
}

// Ladder is an ordered list of brackets evaluated with early exit.
type Ladder []Bracket

// Match returns the first bracket whose test holds for v.
func (l Ladder) Match(v float64) (Bracket, bool) {
	for _, b := range l {
		if b.Test(v) {
			return b, true
		}
	}
	return Bracket{}, false
}

// Below holds for v strictly less than limit.
func Below(limit float64) func(float64) bool {
	return func(v float64) bool { return v < limit }
}

// Above holds for v strictly greater than limit.
func Above(limit float64) func(float64) bool {
	return func(v float64) bool { return v > limit }
}

// Within holds for lo <= v <= hi.
func Within(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi }
}

// tally accumulates weights and the factors that produced them.
type tally struct {
	score   float64
	factors []string
}

func (t *tally) ladder(l Ladder, v float64) {
	if b, ok := l.Match(v); ok {
		t.add(b.Weight, b.Factor)
	}
}

func (t *tally) when(cond bool, weight float64, factor string) {
	if cond {
		t.add(weight, factor)
	}
}

func (t *tally) add(weight float64, factor string) {
	t.score += weight
	t.factors = append(t.factors, factor)
}

func (t *tally) probability() float64 { return settle(t.score) }
