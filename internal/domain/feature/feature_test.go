package feature

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

func TestNormalize_EmptyRecordUsesDefaults(t *testing.T) {
	fs, err := Normalize(map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, Defaults().Record(), fs.Record())
	assert.Equal(t, 999.0, fs.TempMin)
	assert.Equal(t, 60.0, fs.Humidity)
	assert.Equal(t, 5.0, fs.PrecipitationSum)
	assert.Equal(t, DefaultCropType, fs.CropType)
	assert.Empty(t, fs.Supplied())
}

func TestNormalize_NilRecord(t *testing.T) {
	fs, err := Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, 50.0, fs.SoilMoisture)
}

func TestNormalize_NumericKinds(t *testing.T) {
	fs, err := Normalize(map[string]any{
		"temp_min":           int(-2),
		"temp_max":           float32(14.5),
		"humidity":           json.Number("72.5"),
		"wind_speed":         int64(3),
		"cloud_cover":        uint8(20),
		"evapotranspiration": 120.0,
		"crop_type":          "Papa",
	})
	require.NoError(t, err)

	assert.Equal(t, -2.0, fs.TempMin)
	assert.Equal(t, 14.5, fs.TempMax)
	assert.Equal(t, 72.5, fs.Humidity)
	assert.Equal(t, 3.0, fs.WindSpeed)
	assert.Equal(t, 20.0, fs.CloudCover)
	assert.Equal(t, 120.0, fs.Evapotranspiration)
	assert.Equal(t, "Papa", fs.CropType)
	assert.True(t, fs.Has(TempMin))
	assert.True(t, fs.Has(CropType))
	assert.False(t, fs.Has(NDVI))
}

func TestNormalize_NullTakesDefault(t *testing.T) {
	fs, err := Normalize(map[string]any{"soil_moisture": nil, "crop_type": nil})
	require.NoError(t, err)
	assert.Equal(t, 50.0, fs.SoilMoisture)
	assert.Equal(t, DefaultCropType, fs.CropType)
	assert.False(t, fs.Has(SoilMoisture))
}

func TestNormalize_UnknownKeysIgnored(t *testing.T) {
	fs, err := Normalize(map[string]any{"station": "Huancayo", "altitude": "3259"})
	require.NoError(t, err)
	assert.Empty(t, fs.Supplied())
}

func TestNormalize_BlankCropKeepsDefault(t *testing.T) {
	fs, err := Normalize(map[string]any{"crop_type": "   "})
	require.NoError(t, err)
	assert.Equal(t, DefaultCropType, fs.CropType)
}

func TestNormalize_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		key  Key
	}{
		{"string for number", map[string]any{"temp_min": "cold"}, TempMin},
		{"bool for number", map[string]any{"humidity": true}, Humidity},
		{"object for number", map[string]any{"ndvi": map[string]any{"v": 1}}, NDVI},
		{"array for number", map[string]any{"ndwi": []any{0.1}}, NDWI},
		{"malformed json number", map[string]any{"wind_speed": json.Number("fast")}, WindSpeed},
		{"NaN", map[string]any{"temperature": math.NaN()}, Temperature},
		{"infinity", map[string]any{"soil_moisture": math.Inf(-1)}, SoilMoisture},
		{"number for crop", map[string]any{"crop_type": 7}, CropType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidFeature))

			var fe *InvalidFeatureError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.key, fe.Key)
		})
	}
}

func TestInvalidFeatureError_Message(t *testing.T) {
	err := &InvalidFeatureError{Key: TempMin, Got: "string"}
	assert.Equal(t, `feature "temp_min": expected number, got string`, err.Error())

	err = &InvalidFeatureError{Key: CropType, Got: "int"}
	assert.Contains(t, err.Error(), "expected string")
}

func TestFeatureSet_RecordRoundTrip(t *testing.T) {
	fs, err := Normalize(map[string]any{"temp_min": 1.5, "crop_type": "tomate"})
	require.NoError(t, err)

	again, err := Normalize(fs.Record())
	require.NoError(t, err)
	assert.Equal(t, fs.Record(), again.Record())
}

func TestFeatureSet_SuppliedSorted(t *testing.T) {
	fs, err := Normalize(map[string]any{"wind_speed": 1, "cloud_cover": 2, "humidity": 3})
	require.NoError(t, err)
	assert.Equal(t, []Key{CloudCover, Humidity, WindSpeed}, fs.Supplied())
}
