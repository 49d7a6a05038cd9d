// Package pipeline implements the district scoring stages: aggregation,
// feature derivation, joint normalization, BSI and CPS scoring, tiering, and
// camp strategy mapping. Every fallback the stages take on imperfect data is
// recorded as an audit event rather than silently absorbed.
package pipeline

import (
	"sort"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// EventKind classifies an audit event.
type EventKind string

const (
	// EventImputation: a district with no recorded update was assigned a
	// synthetic days_since_last_update.
	EventImputation EventKind = "imputation"
	// EventClamp: a derived value fell outside its valid range and was
	// pulled back to the nearest bound.
	EventClamp EventKind = "clamp"
	// EventDegenerateRange: a feature was constant across all districts, so
	// its normalized value was pinned mid-range.
	EventDegenerateRange EventKind = "degenerate_range"
	// EventZeroHolders: a district with no enrolled holders was treated as
	// fully uncovered.
	EventZeroHolders EventKind = "zero_holders"
)

// Event records one deterministic fallback decision taken during a run.
// Run-level events carry an empty DistrictID.
type Event struct {
	DistrictID string        `json:"district_id,omitempty"`
	Feature    model.Feature `json:"feature,omitempty"`
	Kind       EventKind     `json:"kind"`
	Detail     string        `json:"detail"`
	Value      float64       `json:"value"`
}

// sortEvents orders events by district, feature, then kind so the audit
// trail is identical across runs and concurrency settings.
func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].DistrictID != events[j].DistrictID {
			return events[i].DistrictID < events[j].DistrictID
		}
		if events[i].Feature != events[j].Feature {
			return events[i].Feature < events[j].Feature
		}
		return events[i].Kind < events[j].Kind
	})
}
