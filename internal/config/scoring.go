package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// weightTolerance absorbs float representation noise when checking that a
// weight set sums to 1.0.
const weightTolerance = 0.001

// BSIWeights weights the three normalized indicators combined into the
// Biometric Staleness Index. The values are published methodology constants;
// they are never adjusted from data.
type BSIWeights struct {
	Time      float64 `yaml:"time" mapstructure:"time"`
	Frequency float64 `yaml:"frequency" mapstructure:"frequency"`
	Coverage  float64 `yaml:"coverage" mapstructure:"coverage"`
}

// Sum returns the total of the BSI weights.
func (w BSIWeights) Sum() float64 { return w.Time + w.Frequency + w.Coverage }

// CPSWeights weights the three components combined into the Camp Priority
// Score.
type CPSWeights struct {
	BSI        float64 `yaml:"bsi" mapstructure:"bsi"`
	Population float64 `yaml:"population" mapstructure:"population"`
	Frequency  float64 `yaml:"frequency" mapstructure:"frequency"`
}

// Sum returns the total of the CPS weights.
func (w CPSWeights) Sum() float64 { return w.BSI + w.Population + w.Frequency }

// ScoringConfig is the full policy surface of the scoring core. Everything
// here is externally settable; the defaults are the published methodology.
type ScoringConfig struct {
	// ReferenceDate anchors recency computation, format "2006-01-02".
	// Empty means "today", resolved once at run start and passed into the
	// pipeline so no stage ever reads the ambient clock.
	ReferenceDate string `yaml:"reference_date" mapstructure:"reference_date"`

	BSI BSIWeights `yaml:"bsi_weights" mapstructure:"bsi_weights"`
	CPS CPSWeights `yaml:"cps_weights" mapstructure:"cps_weights"`

	// TierBounds are the four CPS cut points separating the five tiers,
	// strictly descending, e.g. [85 70 55 40]. Each bound is inclusive on
	// the tier above it.
	TierBounds []float64 `yaml:"tier_bounds" mapstructure:"tier_bounds"`

	// ImputationMultiplier scales the observed maximum days_since_last_update
	// when backfilling districts with no recorded update.
	ImputationMultiplier float64 `yaml:"imputation_multiplier" mapstructure:"imputation_multiplier"`

	// ImputationFallbackDays is used when no district has a known update
	// date, so imputation never degenerates to zero spread.
	ImputationFallbackDays float64 `yaml:"imputation_fallback_days" mapstructure:"imputation_fallback_days"`

	// DeriveConcurrency bounds within-stage parallelism of per-district
	// feature derivation. Has no effect on output.
	DeriveConcurrency int `yaml:"derive_concurrency" mapstructure:"derive_concurrency"`
}

// DefaultScoring returns the published methodology constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		BSI:                    BSIWeights{Time: 0.40, Frequency: 0.35, Coverage: 0.25},
		CPS:                    CPSWeights{BSI: 0.50, Population: 0.30, Frequency: 0.20},
		TierBounds:             []float64{85, 70, 55, 40},
		ImputationMultiplier:   1.5,
		ImputationFallbackDays: 3650,
		DeriveConcurrency:      8,
	}
}

// Validate checks that the scoring policy is internally consistent. Any
// failure here is fatal and must abort before data is processed.
func (c ScoringConfig) Validate() error {
	var errs []string

	if c.ReferenceDate != "" {
		if _, err := time.Parse("2006-01-02", c.ReferenceDate); err != nil {
			errs = append(errs, fmt.Sprintf("reference_date %q is not YYYY-MM-DD", c.ReferenceDate))
		}
	}

	for name, w := range map[string]float64{
		"bsi_weights.time":       c.BSI.Time,
		"bsi_weights.frequency":  c.BSI.Frequency,
		"bsi_weights.coverage":   c.BSI.Coverage,
		"cps_weights.bsi":        c.CPS.BSI,
		"cps_weights.population": c.CPS.Population,
		"cps_weights.frequency":  c.CPS.Frequency,
	} {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if math.Abs(c.BSI.Sum()-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("bsi_weights must sum to 1.0, got %.4f", c.BSI.Sum()))
	}
	if math.Abs(c.CPS.Sum()-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("cps_weights must sum to 1.0, got %.4f", c.CPS.Sum()))
	}

	if len(c.TierBounds) != 4 {
		errs = append(errs, fmt.Sprintf("tier_bounds must have exactly 4 cut points, got %d", len(c.TierBounds)))
	} else {
		for i, b := range c.TierBounds {
			if b <= 0 || b >= 100 {
				errs = append(errs, fmt.Sprintf("tier_bounds[%d] must be inside (0, 100), got %.2f", i, b))
			}
			if i > 0 && c.TierBounds[i] >= c.TierBounds[i-1] {
				errs = append(errs, "tier_bounds must be strictly descending")
				break
			}
		}
	}

	if c.ImputationMultiplier <= 1 {
		errs = append(errs, fmt.Sprintf("imputation_multiplier must be > 1, got %.2f", c.ImputationMultiplier))
	}
	if c.ImputationFallbackDays <= 0 {
		errs = append(errs, fmt.Sprintf("imputation_fallback_days must be > 0, got %.0f", c.ImputationFallbackDays))
	}
	if c.DeriveConcurrency < 0 {
		errs = append(errs, "derive_concurrency must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolveReferenceDate returns the configured reference date, or now
// truncated to UTC midnight when unset.
func (c ScoringConfig) ResolveReferenceDate(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.ReferenceDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "scoring: parse reference_date %q", c.ReferenceDate)
	}
	return t, nil
}
