// Package mockdata produces synthetic raw identity extracts for demos and
// local pipeline testing. Output is fully determined by the seed so fixture
// files can be regenerated byte for byte.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options controls the shape of the generated extract.
type Options struct {
	Districts          int
	RecordsPerDistrict int
	Seed               int64
	ReferenceDate      time.Time
	MalformedRate      float64
}

// DefaultOptions mirrors the standard demo dataset: 50 districts with around
// 20 records each and 1% malformed dates.
func DefaultOptions(ref time.Time) Options {
	return Options{
		Districts:          50,
		RecordsPerDistrict: 20,
		Seed:               1,
		ReferenceDate:      ref,
		MalformedRate:      0.01,
	}
}

// District update profiles. Good districts update recently and often, bad
// districts have stale or missing biometric updates.
const (
	profileGood = iota
	profileAverage
	profileBad
)

var header = []string{
	"district_id",
	"aadhaar_id",
	"biometric_update_flag",
	"demographic_update_flag",
	"last_update_date",
}

// Generate writes a synthetic extract to path. The same Options always
// produce the same file.
func Generate(path string, opts Options) error {
	if opts.Districts <= 0 || opts.RecordsPerDistrict <= 0 {
		return eris.Errorf("mockdata: need positive districts and records, got %d/%d", opts.Districts, opts.RecordsPerDistrict)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mockdata: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	rng := rand.New(rand.NewSource(opts.Seed))
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "mockdata: write header")
	}

	rows := 0
	for i := 1; i <= opts.Districts; i++ {
		districtID := fmt.Sprintf("D%03d", i)
		profile := rng.Intn(3)

		for j := 0; j < opts.RecordsPerDistrict; j++ {
			row := generateRow(rng, districtID, j, profile, opts)
			if err := cw.Write(row); err != nil {
				return eris.Wrapf(err, "mockdata: write row for %s", districtID)
			}
			rows++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "mockdata: flush")
	}

	zap.L().Info("mock dataset generated",
		zap.String("path", path),
		zap.Int("districts", opts.Districts),
		zap.Int("rows", rows),
		zap.Int64("seed", opts.Seed),
	)
	return nil
}

func generateRow(rng *rand.Rand, districtID string, seq, profile int, opts Options) []string {
	holderID := fmt.Sprintf("UID_%s_%03d", districtID, seq)

	var bioFlag int
	var daysAgo int
	switch profile {
	case profileGood:
		if rng.Float64() > 0.1 {
			bioFlag = 1
		}
		daysAgo = rng.Intn(31)
	case profileAverage:
		if rng.Float64() > 0.5 {
			bioFlag = 1
		}
		daysAgo = 30 + rng.Intn(336)
	default:
		daysAgo = 365 + rng.Intn(636)
	}

	demoFlag := 0
	if rng.Float64() > 0.7 {
		demoFlag = 1
	}

	dateVal := ""
	if bioFlag == 1 || demoFlag == 1 {
		dateVal = opts.ReferenceDate.AddDate(0, 0, -daysAgo).Format("2006-01-02")
	}
	if rng.Float64() < opts.MalformedRate {
		dateVal = "invalid-date"
	}

	return []string{
		districtID,
		holderID,
		fmt.Sprintf("%d", bioFlag),
		fmt.Sprintf("%d", demoFlag),
		dateVal,
	}
}
