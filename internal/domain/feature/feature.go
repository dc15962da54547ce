package feature

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

// Key names one recognized input of the flat observation record.
type Key string

const (
	TempMin            Key = "temp_min"
	TempMax            Key = "temp_max"
	Temperature        Key = "temperature"
	Humidity           Key = "humidity"
	WindSpeed          Key = "wind_speed"
	CloudCover         Key = "cloud_cover"
	Evapotranspiration Key = "evapotranspiration"
	PrecipitationSum   Key = "precipitation_sum"
	SoilMoisture       Key = "soil_moisture"
	NDWI               Key = "ndwi"
	NDVI               Key = "ndvi"
	CropType           Key = "crop_type"
	Latitude           Key = "latitude"
	Longitude          Key = "longitude"
)

// DefaultCropType is used when crop_type is absent.
const DefaultCropType = "unknown"

// FeatureSet is the normalized observation consumed by the hazard scorers.
// Units: °C, %, km/h, mm. Values are taken as given.
type FeatureSet struct {
	TempMin            float64
	TempMax            float64
	Temperature        float64
	Humidity           float64
	WindSpeed          float64
	CloudCover         float64
	Evapotranspiration float64
	PrecipitationSum   float64
	SoilMoisture       float64
	NDWI               float64
	NDVI               float64
	CropType           string
	Latitude           float64
	Longitude          float64

	present map[Key]struct{}
}

type numericField struct {
	key      Key
	fallback float64
	ref      func(*FeatureSet) *float64
}

// numericFields is the default table. No default triggers any scoring rule.
var numericFields = []numericField{
	{TempMin, 999, func(f *FeatureSet) *float64 { return &f.TempMin }},
	{TempMax, 999, func(f *FeatureSet) *float64 { return &f.TempMax }},
	{Temperature, 0, func(f *FeatureSet) *float64 { return &f.Temperature }},
	{Humidity, 60, func(f *FeatureSet) *float64 { return &f.Humidity }},
	{WindSpeed, 999, func(f *FeatureSet) *float64 { return &f.WindSpeed }},
	{CloudCover, 100, func(f *FeatureSet) *float64 { return &f.CloudCover }},
	{Evapotranspiration, 0, func(f *FeatureSet) *float64 { return &f.Evapotranspiration }},
	{PrecipitationSum, 5, func(f *FeatureSet) *float64 { return &f.PrecipitationSum }},
	{SoilMoisture, 50, func(f *FeatureSet) *float64 { return &f.SoilMoisture }},
	{NDWI, 0, func(f *FeatureSet) *float64 { return &f.NDWI }},
	{NDVI, 0, func(f *FeatureSet) *float64 { return &f.NDVI }},
	{Latitude, 0, func(f *FeatureSet) *float64 { return &f.Latitude }},
	{Longitude, 0, func(f *FeatureSet) *float64 { return &f.Longitude }},
}

// Defaults returns a FeatureSet populated entirely from the default table.
func Defaults() FeatureSet {
	fs := FeatureSet{CropType: DefaultCropType, present: map[Key]struct{}{}}
	for _, nf := range numericFields {
		*nf.ref(&fs) = nf.fallback
	}
	return fs
}

// Normalize maps a raw key/value record onto a FeatureSet.
// Absent keys and JSON nulls take their defaults, unknown keys are ignored.
func Normalize(raw map[string]any) (FeatureSet, error) {
	fs := Defaults()

	for _, nf := range numericFields {
		v, ok := raw[string(nf.key)]
		if !ok || v == nil {
			continue
		}
		n, err := toFloat(nf.key, v)
		if err != nil {
			return FeatureSet{}, err
		}
		*nf.ref(&fs) = n
		fs.present[nf.key] = struct{}{}
	}

	if v, ok := raw[string(CropType)]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return FeatureSet{}, &InvalidFeatureError{Key: CropType, Got: typeName(v)}
		}
		if s = strings.TrimSpace(s); s != "" {
			fs.CropType = s
			fs.present[CropType] = struct{}{}
		}
	}

	return fs, nil
}

// Has reports whether the caller supplied the key.
func (f FeatureSet) Has(k Key) bool {
	_, ok := f.present[k]
	return ok
}

// Supplied returns the keys the caller supplied, sorted.
func (f FeatureSet) Supplied() []Key {
	keys := make([]Key, 0, len(f.present))
	for k := range f.present {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Record returns the flat key/value form, defaults included.
func (f FeatureSet) Record() map[string]any {
	out := make(map[string]any, len(numericFields)+1)
	for _, nf := range numericFields {
		out[string(nf.key)] = *nf.ref(&f)
	}
	out[string(CropType)] = f.CropType
	return out
}

func toFloat(key Key, v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int8:
		n = float64(x)
	case int16:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint8:
		n = float64(x)
	case uint16:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, &InvalidFeatureError{Key: key, Got: "malformed number"}
		}
		n = parsed
	default:
		return 0, &InvalidFeatureError{Key: key, Got: typeName(v)}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &InvalidFeatureError{Key: key, Got: "non-finite number"}
	}
	return n, nil
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// InvalidFeatureError reports a recognized key holding a value of the wrong kind.
type InvalidFeatureError struct {
	Key Key
	Got string
}

func (e *InvalidFeatureError) Error() string {
	want := "number"
	if e.Key == CropType {
		want = "string"
	}
	return fmt.Sprintf("feature %q: expected %s, got %s", string(e.Key), want, e.Got)
}

func (e *InvalidFeatureError) Unwrap() error { return domain.ErrInvalidFeature }
