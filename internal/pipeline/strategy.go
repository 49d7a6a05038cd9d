package pipeline

import (
	"fmt"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// Suitability labels. The high band carries the multi-subcenter upgrade for
// districts that pair a large population with a large coverage gap.
const (
	SuitabilityHigh     = "High Suitability - Multi-Subcenter"
	SuitabilityMedium   = "Medium Suitability"
	SuitabilityLow      = "Low Suitability"
	SuitabilityStandard = "Standard Suitability"
)

// tierStrategies is the fixed tier -> operational parameters table.
var tierStrategies = map[model.Tier]struct {
	campType model.CampType
	window   string
}{
	model.TierImmediate: {model.CampIntensive, "7-10 days"},
	model.TierFrequent:  {model.CampFrequentMobile, "14-21 days"},
	model.TierMonthly:   {model.CampMonthlyMobile, "28-35 days"},
	model.TierQuarterly: {model.CampQuarterlyFixed, "90 days"},
	model.TierAnnual:    {model.CampAnnualPreventive, "365 days"},
}

// MapStrategy is a pure lookup from tier to camp type and deployment window,
// with the suitability label refined by a deterministic rule over the
// already-normalized population and coverage-gap features. No state, no
// side effects.
func MapStrategy(tier model.Tier, cps float64, nv model.NormalizedVector) model.Strategy {
	ts := tierStrategies[tier]

	pop := nv[model.FeaturePopulationProxy]
	gap := nv[model.FeatureCoverageGap]

	var suitability string
	switch {
	case pop > 0.6 && gap > 0.3:
		suitability = SuitabilityHigh
	case pop >= 0.4 && pop <= 0.6 && gap >= 0.2 && gap <= 0.3:
		suitability = SuitabilityMedium
	case pop < 0.4 && gap < 0.2:
		suitability = SuitabilityLow
	default:
		suitability = SuitabilityStandard
	}

	return model.Strategy{
		CampType:        ts.campType,
		FrequencyWindow: ts.window,
		Suitability:     suitability,
		Reasoning: fmt.Sprintf("Assigned %s due to CPS %.2f. Location is %s (pop score %.2f, coverage gap %.2f).",
			ts.campType, cps, suitability, pop, gap),
	}
}
