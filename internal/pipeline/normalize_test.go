package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

func TestNormalize_MinZeroMaxOne(t *testing.T) {
	vectors := map[string]model.FeatureVector{
		"D001": {model.FeatureDaysSinceUpdate: 10},
		"D002": {model.FeatureDaysSinceUpdate: 110},
		"D003": {model.FeatureDaysSinceUpdate: 60},
	}
	normalized, events := Normalize(vectors)
	assert.Equal(t, 0.0, normalized["D001"][model.FeatureDaysSinceUpdate])
	assert.Equal(t, 1.0, normalized["D002"][model.FeatureDaysSinceUpdate])
	assert.InDelta(t, 0.5, normalized["D003"][model.FeatureDaysSinceUpdate], 1e-12)
	assert.Empty(t, events)
}

func TestNormalize_DegenerateAllEqual(t *testing.T) {
	vectors := map[string]model.FeatureVector{
		"D001": {model.FeatureCoverageGap: 0.7},
		"D002": {model.FeatureCoverageGap: 0.7},
	}
	normalized, events := Normalize(vectors)
	assert.Equal(t, degenerateNorm, normalized["D001"][model.FeatureCoverageGap])
	assert.Equal(t, degenerateNorm, normalized["D002"][model.FeatureCoverageGap])

	require.Len(t, events, 1)
	assert.Equal(t, EventDegenerateRange, events[0].Kind)
	assert.Equal(t, model.FeatureCoverageGap, events[0].Feature)
	assert.Empty(t, events[0].DistrictID)
}

func TestNormalize_SingleDistrictIsDegenerate(t *testing.T) {
	vectors := map[string]model.FeatureVector{
		"ONLY": {model.FeatureDaysSinceUpdate: 42, model.FeaturePopulationProxy: 9000},
	}
	normalized, events := Normalize(vectors)
	assert.Equal(t, degenerateNorm, normalized["ONLY"][model.FeatureDaysSinceUpdate])
	assert.Equal(t, degenerateNorm, normalized["ONLY"][model.FeaturePopulationProxy])
	assert.Len(t, events, 2)
}

func TestNormalize_AllValuesInUnitInterval(t *testing.T) {
	vectors := map[string]model.FeatureVector{
		"D001": {model.FeatureDaysSinceUpdate: 5, model.FeaturePopulationProxy: 100},
		"D002": {model.FeatureDaysSinceUpdate: 500, model.FeaturePopulationProxy: 100000},
		"D003": {model.FeatureDaysSinceUpdate: 250, model.FeaturePopulationProxy: 3},
	}
	normalized, _ := Normalize(vectors)
	for id, nv := range normalized {
		for f, v := range nv {
			assert.GreaterOrEqual(t, v, 0.0, "%s %s", id, f)
			assert.LessOrEqual(t, v, 1.0, "%s %s", id, f)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	normalized, events := Normalize(map[string]model.FeatureVector{})
	assert.Empty(t, normalized)
	assert.Empty(t, events)
}
