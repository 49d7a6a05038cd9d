// Package model defines the data types shared across the scoring pipeline.
package model

import "time"

// RecordCategory classifies a raw identity record by which fields are populated.
type RecordCategory string

const (
	CategoryEnrolment   RecordCategory = "enrolment"
	CategoryBiometric   RecordCategory = "biometric"
	CategoryDemographic RecordCategory = "demographic"
)

// RawIdentityRecord is one row of the source extract. It exists only during
// ingestion and aggregation and is never retained past the Aggregator.
type RawIdentityRecord struct {
	DistrictID        string         `json:"district_id"`
	HolderID          string         `json:"holder_id"`
	Category          RecordCategory `json:"category"`
	BiometricUpdate   bool           `json:"biometric_update"`
	DemographicUpdate bool           `json:"demographic_update"`
	UpdateDate        *time.Time     `json:"update_date,omitempty"`
}

// DistrictAggregate is the per-district reduction of the raw extract.
// TotalUpdates <= TotalHolders is expected but not enforced: source extracts
// can violate it transiently and downstream stages must tolerate that.
type DistrictAggregate struct {
	DistrictID              string     `json:"district_id"`
	TotalHolders            int        `json:"total_holders"`
	TotalUpdates            int        `json:"total_updates"`
	TotalDemographicUpdates int        `json:"total_demographic_updates"`
	LastUpdateDate          *time.Time `json:"last_update_date,omitempty"`
}
