package pipeline

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// districtAccum accumulates per-district state during the single aggregation
// pass. Holder IDs are reduced to a count and discarded; nothing
// identity-level survives this stage.
type districtAccum struct {
	holders     map[string]struct{}
	updates     int
	demographic int
	lastUpdate  *time.Time
}

// Aggregate reduces the raw extract to one DistrictAggregate per district.
//
// Holder counting de-duplicates by holder identifier across every record for
// the district, whatever its category, so a holder whose only row carries an
// update flag still counts toward the population baseline. Update counts come
// from biometric-flagged records, and LastUpdateDate is the maximum date
// among them. A district whose records all lack a holder identifier is
// retained with TotalHolders 0 rather than silently dropped; stage 2 guards
// the resulting division.
func Aggregate(records []model.RawIdentityRecord) []model.DistrictAggregate {
	accums := make(map[string]*districtAccum)

	for _, r := range records {
		if r.DistrictID == "" {
			continue
		}
		acc, ok := accums[r.DistrictID]
		if !ok {
			acc = &districtAccum{holders: make(map[string]struct{})}
			accums[r.DistrictID] = acc
		}

		if r.HolderID != "" {
			acc.holders[r.HolderID] = struct{}{}
		}
		if r.DemographicUpdate {
			acc.demographic++
		}
		if r.BiometricUpdate {
			acc.updates++
			// Malformed dates arrive as nil from ingestion and simply
			// don't advance the max; they never halt the run.
			if r.UpdateDate != nil && (acc.lastUpdate == nil || r.UpdateDate.After(*acc.lastUpdate)) {
				d := *r.UpdateDate
				acc.lastUpdate = &d
			}
		}
	}

	aggs := make([]model.DistrictAggregate, 0, len(accums))
	for id, acc := range accums {
		aggs = append(aggs, model.DistrictAggregate{
			DistrictID:              id,
			TotalHolders:            len(acc.holders),
			TotalUpdates:            acc.updates,
			TotalDemographicUpdates: acc.demographic,
			LastUpdateDate:          acc.lastUpdate,
		})
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].DistrictID < aggs[j].DistrictID })

	zap.L().Info("aggregation complete",
		zap.Int("records", len(records)),
		zap.Int("districts", len(aggs)),
	)
	return aggs
}
