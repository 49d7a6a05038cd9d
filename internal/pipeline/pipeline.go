package pipeline

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// ReferenceDate anchors all recency computation for a run. It is resolved
// once from configuration before the pipeline starts; no stage reads the
// ambient clock.
type ReferenceDate struct {
	t time.Time
}

// NewReferenceDate wraps a resolved reference date.
func NewReferenceDate(t time.Time) ReferenceDate {
	return ReferenceDate{t: t}
}

// Time returns the underlying date.
func (r ReferenceDate) Time() time.Time { return r.t }

// DaysSince returns whole days elapsed from d to the reference date.
// Negative when d is in the future relative to the reference date; the
// deriver clamps and audits that case.
func (r ReferenceDate) DaysSince(d time.Time) float64 {
	return math.Floor(r.t.Sub(d).Hours() / 24)
}

// Result is the complete output of one pipeline run: the ranked district set
// plus the audit trail explaining every fallback decision taken.
type Result struct {
	ReferenceDate time.Time              `json:"reference_date"`
	Districts     []model.ScoredDistrict `json:"districts"`
	Audit         []Event                `json:"audit"`
}

// Pipeline chains the scoring stages under one validated policy. Data flows
// strictly forward; each stage produces a new immutable value from the
// previous stage's complete output.
type Pipeline struct {
	cfg config.ScoringConfig
}

// New builds a Pipeline, rejecting an inconsistent scoring policy before any
// data is touched.
func New(cfg config.ScoringConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// RunRecords aggregates a raw identity extract and scores the result.
func (p *Pipeline) RunRecords(ctx context.Context, ref ReferenceDate, records []model.RawIdentityRecord) (*Result, error) {
	return p.Run(ctx, ref, Aggregate(records))
}

// Run scores a set of validated district aggregates: feature derivation,
// joint normalization, BSI, CPS, tier, and strategy, producing districts
// sorted descending by CPS with ties broken by district ID ascending.
func (p *Pipeline) Run(ctx context.Context, ref ReferenceDate, aggs []model.DistrictAggregate) (*Result, error) {
	// Stable input order regardless of how the caller assembled the set.
	sorted := make([]model.DistrictAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DistrictID < sorted[j].DistrictID })

	vectors, deriveEvents, err := DeriveFeatures(ctx, sorted, ref, p.cfg)
	if err != nil {
		return nil, err
	}

	normalized, normEvents := Normalize(vectors)

	districts := make([]model.ScoredDistrict, 0, len(sorted))
	for _, agg := range sorted {
		nv := normalized[agg.DistrictID]

		bsi, err := ComputeBSI(nv, p.cfg.BSI)
		if err != nil {
			return nil, err
		}
		cps, err := ComputeCPS(bsi, nv, p.cfg.CPS)
		if err != nil {
			return nil, err
		}
		tier := AssignTier(cps, p.cfg.TierBounds)

		districts = append(districts, model.ScoredDistrict{
			Aggregate:  agg,
			Raw:        vectors[agg.DistrictID],
			Normalized: nv,
			BSI:        bsi,
			CPS:        cps,
			Tier:       tier,
			Strategy:   MapStrategy(tier, cps, nv),
		})
	}

	sort.Slice(districts, func(i, j int) bool {
		if districts[i].CPS != districts[j].CPS {
			return districts[i].CPS > districts[j].CPS
		}
		return districts[i].Aggregate.DistrictID < districts[j].Aggregate.DistrictID
	})

	audit := make([]Event, 0, len(deriveEvents)+len(normEvents))
	audit = append(audit, deriveEvents...)
	audit = append(audit, normEvents...)
	sortEvents(audit)

	zap.L().Info("scoring complete",
		zap.Int("districts", len(districts)),
		zap.Int("audit_events", len(audit)),
		zap.Time("reference_date", ref.Time()),
	)

	return &Result{
		ReferenceDate: ref.Time(),
		Districts:     districts,
		Audit:         audit,
	}, nil
}
