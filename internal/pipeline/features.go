package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

const daysPerYear = 365.0

// runStats holds the cross-district values that per-district derivation
// depends on. Imputation needs the observed maximum recency and the
// governance indicator needs the largest population, so both are computed in
// an explicit first pass rather than read from any hidden global.
type runStats struct {
	maxKnownDays float64 // max days_since_last_update among districts with a known date
	hasKnownDate bool
	maxHolders   float64
}

// DeriveFeatures computes the raw indicator vector for every district.
//
// Derivation is two-pass: the first pass collects run-level statistics, the
// second derives each district's vector, backfilling absent update dates
// with multiplier x the observed maximum (or the configured fallback when no
// district has a date at all). Per-district work runs under a bounded
// errgroup; each worker produces an immutable vector merged by district key,
// so parallelism cannot change the output.
func DeriveFeatures(ctx context.Context, aggs []model.DistrictAggregate, ref ReferenceDate, cfg config.ScoringConfig) (map[string]model.FeatureVector, []Event, error) {
	stats := collectRunStats(aggs, ref)

	imputedDays := cfg.ImputationFallbackDays
	if stats.hasKnownDate && stats.maxKnownDays > 0 {
		imputedDays = cfg.ImputationMultiplier * stats.maxKnownDays
	}

	vectors := make(map[string]model.FeatureVector, len(aggs))
	events := make([]Event, 0)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.DeriveConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, agg := range aggs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			vec, evs := deriveDistrict(agg, ref, stats, imputedDays)
			mu.Lock()
			vectors[agg.DistrictID] = vec
			events = append(events, evs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: derive features")
	}

	sortEvents(events)

	zap.L().Info("feature derivation complete",
		zap.Int("districts", len(vectors)),
		zap.Int("audit_events", len(events)),
		zap.Float64("imputed_days", imputedDays),
	)
	return vectors, events, nil
}

// collectRunStats is the first derivation pass.
func collectRunStats(aggs []model.DistrictAggregate, ref ReferenceDate) runStats {
	var s runStats
	for _, a := range aggs {
		if a.LastUpdateDate != nil {
			d := ref.DaysSince(*a.LastUpdateDate)
			if d < 0 {
				d = 0
			}
			if !s.hasKnownDate || d > s.maxKnownDays {
				s.maxKnownDays = d
			}
			s.hasKnownDate = true
		}
		if h := float64(a.TotalHolders); h > s.maxHolders {
			s.maxHolders = h
		}
	}
	return s
}

// deriveDistrict is the second derivation pass for one district.
func deriveDistrict(agg model.DistrictAggregate, ref ReferenceDate, stats runStats, imputedDays float64) (model.FeatureVector, []Event) {
	var events []Event
	record := func(feature model.Feature, kind EventKind, detail string, value float64) {
		events = append(events, Event{
			DistrictID: agg.DistrictID,
			Feature:    feature,
			Kind:       kind,
			Detail:     detail,
			Value:      value,
		})
	}

	// Temporal neglect. An absent date flags as maximal neglect, never as
	// "recently updated".
	var days float64
	if agg.LastUpdateDate == nil {
		days = imputedDays
		record(model.FeatureDaysSinceUpdate, EventImputation,
			"no update ever recorded, backfilled past observed maximum", days)
	} else {
		days = ref.DaysSince(*agg.LastUpdateDate)
		if days < 0 {
			record(model.FeatureDaysSinceUpdate, EventClamp,
				fmt.Sprintf("update date after reference date (%.0f days), clamped to 0", days), 0)
			days = 0
		}
	}

	// Coverage. A missing population baseline is itself a worst-case
	// signal, not an error.
	var gap float64
	switch {
	case agg.TotalHolders == 0:
		gap = 1
		record(model.FeatureCoverageGap, EventZeroHolders,
			"no population baseline, treated as maximal gap", 1)
	default:
		gap = 1 - float64(agg.TotalUpdates)/float64(agg.TotalHolders)
		if gap < 0 {
			record(model.FeatureCoverageGap, EventClamp,
				fmt.Sprintf("updates exceed holders (gap %.4f), clamped to 0", gap), 0)
			gap = 0
		}
		if gap > 1 {
			record(model.FeatureCoverageGap, EventClamp,
				fmt.Sprintf("gap %.4f above 1, clamped to 1", gap), 1)
			gap = 1
		}
	}

	// Consistency combines coverage with recency: more recent updates and a
	// lower gap never decrease it.
	consistency := (1 - gap) / (1 + days/daysPerYear)
	lowFrequency := 1 - consistency

	uncovered := float64(agg.TotalHolders - agg.TotalUpdates)
	if uncovered < 0 {
		record(model.FeatureUncoveredPopulation, EventClamp,
			fmt.Sprintf("negative uncovered population %.0f, clamped to 0", uncovered), 0)
		uncovered = 0
	}

	maxHolders := stats.maxHolders
	if maxHolders == 0 {
		maxHolders = 1
	}

	vec := model.FeatureVector{
		model.FeatureDaysSinceUpdate:     days,
		model.FeatureCoverageGap:         gap,
		model.FeatureUpdateConsistency:   consistency,
		model.FeatureLowFrequency:        lowFrequency,
		model.FeaturePopulationProxy:     float64(agg.TotalHolders),
		model.FeatureUncoveredPopulation: uncovered,
		model.FeatureUpdateLagProxy:      gap * days / 730.0,
		model.FeatureGovernanceConcern:   gap * float64(agg.TotalHolders) / maxHolders,
	}

	// Contract: every raw indicator is finite and non-negative before it
	// reaches the Normalizer.
	for _, f := range model.AllFeatures() {
		v := vec[f]
		if math.IsNaN(v) || math.IsInf(v, 1) {
			record(f, EventClamp, "non-finite value, clamped to 0", 0)
			vec[f] = 0
		} else if v < 0 || math.IsInf(v, -1) {
			record(f, EventClamp, fmt.Sprintf("negative value %.4f, clamped to 0", v), 0)
			vec[f] = 0
		}
	}

	return vec, events
}
