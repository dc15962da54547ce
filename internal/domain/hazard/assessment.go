package hazard

import "sort"

// Method tags identify the rule set that produced an assessment.
const (
	MethodFrost   = "baseline_rules"
	MethodDrought = "baseline_water_balance"
	MethodPest    = "baseline_environmental"
)

// AuxWaterDeficit is the drought auxiliary field: evapotranspiration minus precipitation, mm.
const AuxWaterDeficit = "water_deficit_mm"

// Assessment is the result of one hazard scorer (immutable value object).
type Assessment struct {
	kind            Kind
	probability     float64
	level           Level
	method          string
	aux             map[string]float64
	factors         []string
	recommendations []string
	forecastWindow  string
}

// Reconstruct creates an Assessment without scoring (storage hydration, tests).
func Reconstruct(kind Kind, probability float64, level Level, method string, aux map[string]float64) Assessment {
	return Assessment{kind: kind, probability: probability, level: level, method: method, aux: cloneAux(aux)}
}

// Kind returns the hazard kind.
func (a *Assessment) Kind() Kind { return a.kind }

// Probability returns the clamped score in [0,1].
func (a *Assessment) Probability() float64 { return a.probability }

// Level returns the categorical band.
func (a *Assessment) Level() Level { return a.level }

// Method returns the rule set tag.
func (a *Assessment) Method() string { return a.method }

// Aux returns an auxiliary numeric field.
func (a *Assessment) Aux(name string) (float64, bool) {
	v, ok := a.aux[name]
	return v, ok
}

// AuxNames returns the auxiliary field names, sorted.
func (a *Assessment) AuxNames() []string {
	names := make([]string, 0, len(a.aux))
	for k := range a.aux {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Factors returns the contributing rules in evaluation order.
func (a *Assessment) Factors() []string { return append([]string(nil), a.factors...) }

// Recommendations returns the actions suggested for the assessed band.
func (a *Assessment) Recommendations() []string {
	return append([]string(nil), a.recommendations...)
}

// ForecastWindow returns the horizon the assessment applies to.
func (a *Assessment) ForecastWindow() string { return a.forecastWindow }

// Record returns the flat serializable form.
func (a *Assessment) Record() map[string]any {
	out := map[string]any{
		"probability":     a.probability,
		"risk_level":      string(a.level),
		"model_type":      a.method,
		"factors":         nonNil(a.factors),
		"recommendations": nonNil(a.recommendations),
		"forecast_window": a.forecastWindow,
	}
	for k, v := range a.aux {
		out[k] = v
	}
	return out
}

func cloneAux(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
