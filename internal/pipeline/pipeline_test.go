package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(config.DefaultScoring())
	require.NoError(t, err)
	return p
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.BSI.Time = 0.9
	_, err := New(cfg)
	require.Error(t, err)
}

func TestRun_EndToEndExample(t *testing.T) {
	// Two districts: D001 healthy, D002 neglected with no recorded update.
	// D002 must take the maximal normalized recency and gap, score strictly
	// higher on both indices, and rank first.
	p := newTestPipeline(t)
	aggs := []model.DistrictAggregate{
		{DistrictID: "D001", TotalHolders: 1000, TotalUpdates: 900, LastUpdateDate: daysAgo(30)},
		{DistrictID: "D002", TotalHolders: 1000, TotalUpdates: 100},
	}

	res, err := p.Run(context.Background(), testRef, aggs)
	require.NoError(t, err)
	require.Len(t, res.Districts, 2)

	first, second := res.Districts[0], res.Districts[1]
	assert.Equal(t, "D002", first.Aggregate.DistrictID)
	assert.Equal(t, "D001", second.Aggregate.DistrictID)

	assert.Equal(t, 1.0, first.Normalized[model.FeatureDaysSinceUpdate])
	assert.Equal(t, 1.0, first.Normalized[model.FeatureCoverageGap])

	assert.Greater(t, first.BSI, second.BSI)
	assert.Greater(t, first.CPS, second.CPS)

	// D002: BSI 1.0, population degenerate at 0.5, low_frequency 1.0
	// => CPS = 100 * (0.5 + 0.15 + 0.2) = 85, the Tier 1 lower bound.
	assert.InDelta(t, 1.0, first.BSI, 1e-9)
	assert.InDelta(t, 85.0, first.CPS, 1e-9)
	assert.Equal(t, model.TierImmediate, first.Tier)
	assert.Equal(t, model.CampIntensive, first.Strategy.CampType)

	// The imputation for D002 must appear in the audit trail.
	var imputed bool
	for _, e := range res.Audit {
		if e.Kind == EventImputation && e.DistrictID == "D002" {
			imputed = true
		}
	}
	assert.True(t, imputed)
}

func TestRun_ScoreBoundsHold(t *testing.T) {
	p := newTestPipeline(t)
	aggs := []model.DistrictAggregate{
		{DistrictID: "D001", TotalHolders: 0, TotalUpdates: 0},
		{DistrictID: "D002", TotalHolders: 10, TotalUpdates: 25, LastUpdateDate: daysAgo(1)},
		{DistrictID: "D003", TotalHolders: 100000, TotalUpdates: 1, LastUpdateDate: daysAgo(2000)},
		{DistrictID: "D004", TotalHolders: 5000, TotalUpdates: 5000, LastUpdateDate: daysAgo(0)},
		{DistrictID: "D005", TotalHolders: 777, TotalUpdates: 400},
	}

	res, err := p.Run(context.Background(), testRef, aggs)
	require.NoError(t, err)

	for _, d := range res.Districts {
		assert.GreaterOrEqual(t, d.BSI, 0.0, d.Aggregate.DistrictID)
		assert.LessOrEqual(t, d.BSI, 1.0, d.Aggregate.DistrictID)
		assert.GreaterOrEqual(t, d.CPS, 0.0, d.Aggregate.DistrictID)
		assert.LessOrEqual(t, d.CPS, 100.0, d.Aggregate.DistrictID)
		assert.GreaterOrEqual(t, int(d.Tier), 1)
		assert.LessOrEqual(t, int(d.Tier), 5)
	}
}

func TestRun_Idempotent(t *testing.T) {
	p := newTestPipeline(t)
	aggs := []model.DistrictAggregate{
		{DistrictID: "D010", TotalHolders: 1200, TotalUpdates: 400, LastUpdateDate: daysAgo(90)},
		{DistrictID: "D002", TotalHolders: 800, TotalUpdates: 100},
		{DistrictID: "D007", TotalHolders: 0, TotalUpdates: 12, LastUpdateDate: daysAgo(500)},
		{DistrictID: "D001", TotalHolders: 15000, TotalUpdates: 14000, LastUpdateDate: daysAgo(10)},
	}

	first, err := p.Run(context.Background(), testRef, aggs)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), testRef, aggs)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "identical input and config must yield byte-identical output")
}

func TestRun_TieBrokenByDistrictID(t *testing.T) {
	p := newTestPipeline(t)
	// Identical districts tie on CPS; order must fall back to district ID.
	aggs := []model.DistrictAggregate{
		{DistrictID: "ZZZ", TotalHolders: 100, TotalUpdates: 50, LastUpdateDate: daysAgo(100)},
		{DistrictID: "AAA", TotalHolders: 100, TotalUpdates: 50, LastUpdateDate: daysAgo(100)},
	}
	res, err := p.Run(context.Background(), testRef, aggs)
	require.NoError(t, err)
	require.Len(t, res.Districts, 2)
	assert.Equal(t, res.Districts[0].CPS, res.Districts[1].CPS)
	assert.Equal(t, "AAA", res.Districts[0].Aggregate.DistrictID)
	assert.Equal(t, "ZZZ", res.Districts[1].Aggregate.DistrictID)
}

func TestRun_StalenessMonotonicity(t *testing.T) {
	// Holding everything else fixed, pushing a district's last update
	// further into the past never decreases its BSI or CPS.
	p := newTestPipeline(t)
	others := []model.DistrictAggregate{
		{DistrictID: "A", TotalHolders: 5000, TotalUpdates: 2500, LastUpdateDate: daysAgo(2000)},
		{DistrictID: "B", TotalHolders: 300, TotalUpdates: 200, LastUpdateDate: daysAgo(5)},
	}

	var prevBSI, prevCPS float64
	for i, staleness := range []int{10, 100, 500, 1500} {
		aggs := append([]model.DistrictAggregate{
			{DistrictID: "TARGET", TotalHolders: 1000, TotalUpdates: 600, LastUpdateDate: daysAgo(staleness)},
		}, others...)

		res, err := p.Run(context.Background(), testRef, aggs)
		require.NoError(t, err)

		var target model.ScoredDistrict
		for _, d := range res.Districts {
			if d.Aggregate.DistrictID == "TARGET" {
				target = d
			}
		}
		if i > 0 {
			assert.GreaterOrEqual(t, target.BSI, prevBSI, "staleness=%d", staleness)
			assert.GreaterOrEqual(t, target.CPS, prevCPS, "staleness=%d", staleness)
		}
		prevBSI, prevCPS = target.BSI, target.CPS
	}
}

func TestRunRecords_FullChain(t *testing.T) {
	p := newTestPipeline(t)
	records := []model.RawIdentityRecord{
		{DistrictID: "D001", HolderID: "H1", Category: model.CategoryEnrolment},
		{DistrictID: "D001", HolderID: "H2", Category: model.CategoryEnrolment},
		{DistrictID: "D001", HolderID: "H1", Category: model.CategoryBiometric, BiometricUpdate: true, UpdateDate: daysAgo(20)},
		{DistrictID: "D002", HolderID: "H3", Category: model.CategoryEnrolment},
	}
	res, err := p.RunRecords(context.Background(), testRef, records)
	require.NoError(t, err)
	require.Len(t, res.Districts, 2)
	// D002 never updated: it must outrank D001.
	assert.Equal(t, "D002", res.Districts[0].Aggregate.DistrictID)
}

func TestRunRecords_FullyCoveredDistrictRanksBelowNeglected(t *testing.T) {
	// D001's three holders all updated a week ago; its rows carry only
	// update flags, so the holder baseline must come from those same rows.
	// D002 has two holders who never updated and one stale update. Full
	// coverage must read as a zero gap, not an empty baseline, and D002
	// must rank first.
	p := newTestPipeline(t)
	records := []model.RawIdentityRecord{
		{DistrictID: "D001", HolderID: "H1", Category: model.CategoryBiometric, BiometricUpdate: true, UpdateDate: daysAgo(7)},
		{DistrictID: "D001", HolderID: "H2", Category: model.CategoryBiometric, BiometricUpdate: true, UpdateDate: daysAgo(7)},
		{DistrictID: "D001", HolderID: "H3", Category: model.CategoryBiometric, BiometricUpdate: true, UpdateDate: daysAgo(7)},
		{DistrictID: "D002", HolderID: "H4", Category: model.CategoryEnrolment},
		{DistrictID: "D002", HolderID: "H5", Category: model.CategoryEnrolment},
		{DistrictID: "D002", HolderID: "H6", Category: model.CategoryBiometric, BiometricUpdate: true, UpdateDate: daysAgo(900)},
	}

	res, err := p.RunRecords(context.Background(), testRef, records)
	require.NoError(t, err)
	require.Len(t, res.Districts, 2)

	first, second := res.Districts[0], res.Districts[1]
	assert.Equal(t, "D002", first.Aggregate.DistrictID)
	assert.Equal(t, "D001", second.Aggregate.DistrictID)

	assert.Equal(t, 3, second.Aggregate.TotalHolders)
	assert.Equal(t, 3, second.Aggregate.TotalUpdates)
	assert.Equal(t, 0.0, second.Normalized[model.FeatureCoverageGap])
	assert.Equal(t, 1.0, first.Normalized[model.FeatureCoverageGap])

	// No zero_holders fault: both districts have a real baseline.
	for _, e := range res.Audit {
		assert.NotEqual(t, EventZeroHolders, e.Kind)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	p := newTestPipeline(t)
	res, err := p.Run(context.Background(), testRef, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Districts)
}
