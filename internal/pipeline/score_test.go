package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

func TestComputeBSI_WeightedCombination(t *testing.T) {
	nv := model.NormalizedVector{
		model.FeatureDaysSinceUpdate: 1.0,
		model.FeatureLowFrequency:    0.5,
		model.FeatureCoverageGap:     0.2,
	}
	bsi, err := ComputeBSI(nv, config.DefaultScoring().BSI)
	require.NoError(t, err)
	// 0.40*1.0 + 0.35*0.5 + 0.25*0.2 = 0.625
	assert.InDelta(t, 0.625, bsi, 1e-9)
}

func TestComputeBSI_Bounds(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		nv := model.NormalizedVector{
			model.FeatureDaysSinceUpdate: v,
			model.FeatureLowFrequency:    v,
			model.FeatureCoverageGap:     v,
		}
		bsi, err := ComputeBSI(nv, config.DefaultScoring().BSI)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bsi, 0.0)
		assert.LessOrEqual(t, bsi, 1.0)
	}
}

func TestComputeBSI_InvariantViolationIsFatal(t *testing.T) {
	// A normalized input materially outside [0, 1] can only come from a
	// defect upstream; the scorer must refuse rather than clamp it away.
	nv := model.NormalizedVector{
		model.FeatureDaysSinceUpdate: 3.0,
		model.FeatureLowFrequency:    0,
		model.FeatureCoverageGap:     0,
	}
	_, err := ComputeBSI(nv, config.DefaultScoring().BSI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invariant violated")
}

func TestComputeCPS_WeightedCombination(t *testing.T) {
	nv := model.NormalizedVector{
		model.FeaturePopulationProxy: 1.0,
		model.FeatureLowFrequency:    0.5,
	}
	cps, err := ComputeCPS(0.8, nv, config.DefaultScoring().CPS)
	require.NoError(t, err)
	// 100 * (0.50*0.8 + 0.30*1.0 + 0.20*0.5) = 80
	assert.InDelta(t, 80.0, cps, 1e-9)
}

func TestComputeCPS_FullScoreIsHundred(t *testing.T) {
	nv := model.NormalizedVector{
		model.FeaturePopulationProxy: 1.0,
		model.FeatureLowFrequency:    1.0,
	}
	cps, err := ComputeCPS(1.0, nv, config.DefaultScoring().CPS)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cps)
	assert.Equal(t, model.TierImmediate, AssignTier(cps, config.DefaultScoring().TierBounds))
}

func TestComputeCPS_InvariantViolationIsFatal(t *testing.T) {
	nv := model.NormalizedVector{
		model.FeaturePopulationProxy: 5.0,
		model.FeatureLowFrequency:    0,
	}
	_, err := ComputeCPS(1.0, nv, config.DefaultScoring().CPS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invariant violated")
}

func TestAssignTier_BoundaryExactness(t *testing.T) {
	bounds := config.DefaultScoring().TierBounds
	cases := []struct {
		cps  float64
		tier model.Tier
	}{
		{100.0, model.TierImmediate},
		{85.0, model.TierImmediate},
		{84.999, model.TierFrequent},
		{70.0, model.TierFrequent},
		{69.999, model.TierMonthly},
		{55.0, model.TierMonthly},
		{54.999, model.TierQuarterly},
		{40.0, model.TierQuarterly},
		{39.999, model.TierAnnual},
		{0.0, model.TierAnnual},
	}
	for _, c := range cases {
		assert.Equal(t, c.tier, AssignTier(c.cps, bounds), "cps=%.3f", c.cps)
	}
}

func TestAssignTier_CustomBounds(t *testing.T) {
	bounds := []float64{90, 60, 30, 10}
	assert.Equal(t, model.TierImmediate, AssignTier(95, bounds))
	assert.Equal(t, model.TierMonthly, AssignTier(45, bounds))
	assert.Equal(t, model.TierAnnual, AssignTier(5, bounds))
}
