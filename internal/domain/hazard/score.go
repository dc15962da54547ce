package hazard

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/agroverse/internal/domain/feature"
)

// Scorer turns a normalized observation into an assessment. Scorers are pure.
type Scorer func(feature.FeatureSet) Assessment

// ScorerFor returns the scorer for a hazard kind.
func ScorerFor(k Kind) (Scorer, bool) {
	switch k {
	case Frost:
		return ScoreFrost, true
	case Drought:
		return ScoreDrought, true
	case Pest:
		return ScorePest, true
	default:
		return nil, false
	}
}

var frostMinTemp = Ladder{
	{Test: Below(0), Weight: 0.5, Factor: "temperatura mínima bajo 0°C"},
	{Test: Below(2), Weight: 0.3, Factor: "temperatura mínima muy baja (<2°C)"},
	{Test: Below(5), Weight: 0.15, Factor: "temperatura mínima baja (<5°C)"},
}

// ScoreFrost estimates frost probability from temperature, humidity, wind and sky.
func ScoreFrost(fs feature.FeatureSet) Assessment {
	var t tally
	t.ladder(frostMinTemp, fs.TempMin)

	amplitude := fs.TempMax - fs.TempMin
	t.when(amplitude > 15, 0.15,
		fmt.Sprintf("gran amplitud térmica (%.1f°C), favorece helada radiativa", amplitude))
	t.when(fs.Humidity < 60, 0.10, "humedad baja (<60%), menos protección atmosférica")
	t.when(fs.WindSpeed < 5, 0.10, "viento calmo, permite acumulación de aire frío")
	t.when(fs.CloudCover < 30, 0.15, "cielo despejado, mayor radiación nocturna")

	return assess(Frost, MethodFrost, fourBand, t, nil)
}

var (
	droughtDeficit = Ladder{
		{Test: Above(100), Weight: 0.4, Factor: "déficit hídrico severo"},
		{Test: Above(50), Weight: 0.25, Factor: "déficit hídrico moderado"},
		{Test: Above(20), Weight: 0.15, Factor: "déficit hídrico leve"},
	}
	droughtSoil = Ladder{
		{Test: Below(20), Weight: 0.3, Factor: "humedad del suelo muy baja (<20%)"},
		{Test: Below(35), Weight: 0.2, Factor: "humedad del suelo baja (<35%)"},
		{Test: Below(50), Weight: 0.1, Factor: "humedad del suelo por debajo del óptimo (<50%)"},
	}
	droughtNDWI = Ladder{
		{Test: Below(-0.3), Weight: 0.2, Factor: "NDWI indica estrés hídrico severo"},
		{Test: Below(0), Weight: 0.1, Factor: "NDWI indica estrés hídrico moderado"},
	}
)

// ScoreDrought estimates drought probability from the water balance, soil moisture and NDWI.
func ScoreDrought(fs feature.FeatureSet) Assessment {
	var t tally
	deficit := fs.Evapotranspiration - fs.PrecipitationSum

	if b, ok := droughtDeficit.Match(deficit); ok {
		t.add(b.Weight, fmt.Sprintf("%s (%.1f mm)", b.Factor, deficit))
	}
	t.ladder(droughtSoil, fs.SoilMoisture)
	t.ladder(droughtNDWI, fs.NDWI)
	t.when(fs.PrecipitationSum < 5, 0.1, "sin precipitación significativa reciente")

	return assess(Drought, MethodDrought, fourBand, t, map[string]float64{AuxWaterDeficit: deficit})
}

var (
	pestTemperature = Ladder{
		{Test: Within(20, 30), Weight: 0.3, Factor: "temperatura óptima para plagas"},
		{Test: Within(15, 35), Weight: 0.15, Factor: "temperatura favorable para plagas"},
	}
	pestHumidity = Ladder{
		{Test: Above(80), Weight: 0.3, Factor: "humedad muy alta, favorece hongos y plagas"},
		{Test: Above(70), Weight: 0.2, Factor: "humedad alta, propicia para plagas"},
		{Test: Above(60), Weight: 0.1, Factor: "humedad moderada"},
	}
	susceptibleCrops = map[string]bool{"potato": true, "tomato": true, "papa": true, "tomate": true}
)

// IsSusceptible reports whether the crop is in the pest-susceptible set (case-insensitive).
func IsSusceptible(crop string) bool {
	return susceptibleCrops[strings.ToLower(strings.TrimSpace(crop))]
}

// ScorePest estimates pest pressure from temperature, humidity, canopy vigor and crop.
func ScorePest(fs feature.FeatureSet) Assessment {
	var t tally
	t.ladder(pestTemperature, fs.Temperature)
	t.ladder(pestHumidity, fs.Humidity)
	t.when(Within(0.3, 0.7)(fs.NDVI), 0.2, "vegetación en estado susceptible")
	t.when(IsSusceptible(fs.CropType), 0.1, "cultivo altamente susceptible a plagas")

	return assess(Pest, MethodPest, threeBand, t, nil)
}

func assess(k Kind, method string, bands Banding, t tally, aux map[string]float64) Assessment {
	p := t.probability()
	level := bands.Classify(p)
	return Assessment{
		kind:            k,
		probability:     p,
		level:           level,
		method:          method,
		aux:             aux,
		factors:         t.factors,
		recommendations: recommendationsFor(k, level),
		forecastWindow:  forecastWindows[k],
	}
}
