package pipeline

import (
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// degenerateNorm is the value every district receives for a feature whose
// min equals its max across the run. An explicit branch, not an incidental
// NaN.
const degenerateNorm = 0.5

// Normalize min-max rescales each feature jointly across the complete
// district set: normalized = (value - min) / (max - min).
//
// The min/max are computed over exactly the districts in this run, never
// calibrated against a prior run, so normalized values (and the scores built
// on them) are only comparable within one run's district set. Callers must
// not compare absolute scores across runs.
//
// Normalize takes and returns the complete collection; a single district
// cannot be normalized in isolation.
func Normalize(vectors map[string]model.FeatureVector) (map[string]model.NormalizedVector, []Event) {
	normalized := make(map[string]model.NormalizedVector, len(vectors))
	for id := range vectors {
		normalized[id] = make(model.NormalizedVector, len(model.AllFeatures()))
	}

	var events []Event
	for _, f := range model.AllFeatures() {
		min, max, seen := featureRange(vectors, f)
		if !seen {
			continue
		}

		if min == max {
			for id := range vectors {
				normalized[id][f] = degenerateNorm
			}
			events = append(events, Event{
				Feature: f,
				Kind:    EventDegenerateRange,
				Detail:  "all districts tied, normalized to fixed constant",
				Value:   degenerateNorm,
			})
			continue
		}

		spread := max - min
		for id, vec := range vectors {
			normalized[id][f] = (vec[f] - min) / spread
		}
	}

	sortEvents(events)

	zap.L().Info("normalization complete",
		zap.Int("districts", len(normalized)),
		zap.Int("degenerate_features", len(events)),
	)
	return normalized, events
}

// featureRange returns the global min and max of one feature.
func featureRange(vectors map[string]model.FeatureVector, f model.Feature) (min, max float64, seen bool) {
	for _, vec := range vectors {
		v := vec[f]
		if !seen {
			min, max, seen = v, v, true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, seen
}
