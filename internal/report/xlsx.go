package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aadhaar-netra/netra-cli/internal/model"
	"github.com/aadhaar-netra/netra-cli/internal/pipeline"
)

// WriteWorkbookXLSX exports a two-sheet workbook: the ranked table and the
// per-district strategy recommendations. Intended for reviewers who work in
// spreadsheets rather than joining the CSVs themselves.
func WriteWorkbookXLSX(path string, res *pipeline.Result) error {
	f := xlsx.NewFile()

	ranked, err := f.AddSheet("Ranked Districts")
	if err != nil {
		return eris.Wrap(err, "report: add ranked sheet")
	}
	addRow(ranked, rankedHeader...)
	for i, d := range res.Districts {
		lastUpdate := ""
		if d.Aggregate.LastUpdateDate != nil {
			lastUpdate = d.Aggregate.LastUpdateDate.Format("2006-01-02")
		}
		addRow(ranked,
			fmt.Sprintf("%d", i+1),
			d.Aggregate.DistrictID,
			fmt.Sprintf("%d", d.Aggregate.TotalHolders),
			fmt.Sprintf("%d", d.Aggregate.TotalUpdates),
			lastUpdate,
			fmt.Sprintf("%.0f", d.Raw[model.FeatureDaysSinceUpdate]),
			fmt.Sprintf("%.4f", d.Raw[model.FeatureCoverageGap]),
			fmt.Sprintf("%.4f", d.Raw[model.FeatureUpdateConsistency]),
			fmt.Sprintf("%.4f", d.Raw[model.FeatureLowFrequency]),
			fmt.Sprintf("%.4f", d.BSI),
			fmt.Sprintf("%.2f", d.CPS),
			fmt.Sprintf("%d", int(d.Tier)),
			d.Tier.Label(),
			string(d.Strategy.CampType),
			d.Strategy.FrequencyWindow,
			d.Strategy.Suitability,
			d.Strategy.Reasoning,
		)
	}

	strategies, err := f.AddSheet("Camp Strategy")
	if err != nil {
		return eris.Wrap(err, "report: add strategy sheet")
	}
	addRow(strategies, "district_id", "tier", "camp_type", "frequency_window", "suitability", "reasoning")
	for _, d := range res.Districts {
		addRow(strategies,
			d.Aggregate.DistrictID,
			d.Tier.Label(),
			string(d.Strategy.CampType),
			d.Strategy.FrequencyWindow,
			d.Strategy.Suitability,
			d.Strategy.Reasoning,
		)
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}
