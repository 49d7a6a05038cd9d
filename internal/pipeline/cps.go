package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// ComputeCPS combines BSI, normalized population impact, and the normalized
// low-frequency indicator into the 0-100 Camp Priority Score.
func ComputeCPS(bsi float64, nv model.NormalizedVector, w config.CPSWeights) (float64, error) {
	cps := 100 * (w.BSI*bsi +
		w.Population*nv[model.FeaturePopulationProxy] +
		w.Frequency*nv[model.FeatureLowFrequency])

	switch {
	case cps < -100*boundSlack || cps > 100*(1+boundSlack):
		return 0, eris.Errorf("cps: score %.12f outside [0, 100], scoring invariant violated", cps)
	case cps < 0:
		cps = 0
	case cps > 100:
		cps = 100
	}
	return cps, nil
}

// AssignTier maps a CPS value to one of the five ordinal tiers using the
// configured cut points (strictly descending, each inclusive on the tier
// above it). CPS exactly 100 lands in Tier 1: the top band is closed on
// both ends.
func AssignTier(cps float64, bounds []float64) model.Tier {
	for i, b := range bounds {
		if cps >= b {
			return model.Tier(i + 1)
		}
	}
	return model.Tier(len(bounds) + 1)
}
