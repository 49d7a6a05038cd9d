package model

import "fmt"

// Tier is one of five ordinal priority bands mapped from CPS.
// Tier 1 is the most urgent.
type Tier int

const (
	TierImmediate Tier = 1
	TierFrequent  Tier = 2
	TierMonthly   Tier = 3
	TierQuarterly Tier = 4
	TierAnnual    Tier = 5
)

// Label returns the published band name for a tier.
func (t Tier) Label() string {
	switch t {
	case TierImmediate:
		return "Immediate/Intensive"
	case TierFrequent:
		return "Frequent Mobile"
	case TierMonthly:
		return "Monthly Mobile"
	case TierQuarterly:
		return "Quarterly Fixed"
	case TierAnnual:
		return "Annual Preventive"
	default:
		return fmt.Sprintf("Tier %d", int(t))
	}
}

// CampType identifies the operational camp model deployed to a district.
type CampType string

const (
	CampIntensive        CampType = "INTENSIVE"
	CampFrequentMobile   CampType = "FREQUENT_MOBILE"
	CampMonthlyMobile    CampType = "MONTHLY_MOBILE"
	CampQuarterlyFixed   CampType = "QUARTERLY_FIXED"
	CampAnnualPreventive CampType = "ANNUAL_PREVENTIVE"
)

// Strategy holds the operational parameters mapped from a district's tier.
type Strategy struct {
	CampType        CampType `json:"camp_type"`
	FrequencyWindow string   `json:"frequency_window"`
	Suitability     string   `json:"suitability"`
	Reasoning       string   `json:"reasoning"`
}

// ScoredDistrict is the final per-district pipeline output. It is created
// once per run and immutable thereafter.
type ScoredDistrict struct {
	Aggregate  DistrictAggregate `json:"aggregate"`
	Raw        FeatureVector     `json:"raw_features"`
	Normalized NormalizedVector  `json:"normalized_features"`
	BSI        float64           `json:"bsi"`
	CPS        float64           `json:"cps"`
	Tier       Tier              `json:"tier"`
	Strategy   Strategy          `json:"strategy"`
}
