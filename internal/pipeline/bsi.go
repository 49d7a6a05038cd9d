package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/aadhaar-netra/netra-cli/internal/config"
	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// boundSlack absorbs float accumulation dust at the contractual bounds. A
// score outside its bound by more than this is a defect in the scoring
// logic, not a data-quality issue, and halts the run.
const boundSlack = 1e-9

// ComputeBSI combines the normalized temporal, frequency, and coverage
// indicators into the Biometric Staleness Index. Given normalized inputs in
// [0, 1] and weights summing to 1.0 the result is guaranteed in [0, 1].
func ComputeBSI(nv model.NormalizedVector, w config.BSIWeights) (float64, error) {
	bsi := w.Time*nv[model.FeatureDaysSinceUpdate] +
		w.Frequency*nv[model.FeatureLowFrequency] +
		w.Coverage*nv[model.FeatureCoverageGap]

	switch {
	case bsi < -boundSlack || bsi > 1+boundSlack:
		return 0, eris.Errorf("bsi: score %.12f outside [0, 1], scoring invariant violated", bsi)
	case bsi < 0:
		bsi = 0
	case bsi > 1:
		bsi = 1
	}
	return bsi, nil
}
