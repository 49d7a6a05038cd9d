package model

// Feature names one engineered indicator. Raw values live in a FeatureVector;
// min-max rescaled values live in a NormalizedVector under the same key.
type Feature string

const (
	FeatureDaysSinceUpdate     Feature = "days_since_last_update"
	FeatureCoverageGap         Feature = "coverage_gap"
	FeatureUpdateConsistency   Feature = "update_consistency"
	FeatureLowFrequency        Feature = "low_frequency"
	FeaturePopulationProxy     Feature = "population_proxy"
	FeatureUncoveredPopulation Feature = "uncovered_population"
	FeatureUpdateLagProxy      Feature = "update_lag_proxy"
	FeatureGovernanceConcern   Feature = "governance_concern"
)

// AllFeatures returns every feature in a fixed order. The order is part of
// the determinism contract: exports and audit trails iterate it directly.
func AllFeatures() []Feature {
	return []Feature{
		FeatureDaysSinceUpdate,
		FeatureCoverageGap,
		FeatureUpdateConsistency,
		FeatureLowFrequency,
		FeaturePopulationProxy,
		FeatureUncoveredPopulation,
		FeatureUpdateLagProxy,
		FeatureGovernanceConcern,
	}
}

// FeatureVector holds raw (unnormalized) indicator values for one district.
// Every feature is finite and non-negative after derivation; the deriver
// clamps anything that would violate that and records an audit event.
type FeatureVector map[Feature]float64

// NormalizedVector holds the same indicators rescaled into [0, 1] using the
// global min/max of the current run's district set. Values are only
// comparable within a single run: normalization is never calibrated against
// a prior run's statistics.
type NormalizedVector map[Feature]float64
