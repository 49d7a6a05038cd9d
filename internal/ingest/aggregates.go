package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// aggregateColumns is the pre-aggregated district table schema, the entry
// point for callers that aggregate upstream. total_demographic_updates is
// optional; last_update_date may be empty for never-updated districts.
var aggregateColumns = []string{
	"district_id",
	"total_holders",
	"total_updates",
}

// ReadAggregatesCSV reads a pre-aggregated district CSV. Rows with a
// missing district ID or unparseable counts are flagged and skipped.
func ReadAggregatesCSV(ctx context.Context, path string) ([]model.DistrictAggregate, []RowFault, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read header")
	}

	var rows [][]string
	line := 1
	for {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "ingest: cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: read row %d", line+1)
		}
		line++
		rows = append(rows, row)
	}

	aggs, faults, err := parseAggregates(header, rows)
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("aggregate table loaded",
		zap.String("path", path),
		zap.Int("districts", len(aggs)),
		zap.Int("faults", len(faults)),
	)
	return aggs, faults, nil
}

// ReadAggregatesXLSX reads the same district table from the first sheet of
// an XLSX workbook.
func ReadAggregatesXLSX(path string) ([]model.DistrictAggregate, []RowFault, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("ingest: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.Errorf("ingest: %s first sheet is empty", path)
	}

	var header []string
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}

	var rows [][]string
	for _, r := range sheet.Rows[1:] {
		var cells []string
		for _, c := range r.Cells {
			cells = append(cells, c.String())
		}
		rows = append(rows, cells)
	}

	aggs, faults, err := parseAggregates(header, rows)
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("aggregate workbook loaded",
		zap.String("path", path),
		zap.Int("districts", len(aggs)),
		zap.Int("faults", len(faults)),
	)
	return aggs, faults, nil
}

func parseAggregates(header []string, rows [][]string) ([]model.DistrictAggregate, []RowFault, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}
	var missing []string
	for _, c := range aggregateColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, eris.Errorf("ingest: aggregate schema validation failed, missing columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var aggs []model.DistrictAggregate
	var faults []RowFault
	for n, row := range rows {
		line := n + 2 // 1-based, after the header

		id := field(row, "district_id")
		if id == "" {
			faults = append(faults, RowFault{Line: line, Reason: "missing district identifier"})
			continue
		}

		holders, err := strconv.Atoi(field(row, "total_holders"))
		if err != nil || holders < 0 {
			faults = append(faults, RowFault{Line: line, Reason: "unparseable total_holders"})
			continue
		}
		updates, err := strconv.Atoi(field(row, "total_updates"))
		if err != nil || updates < 0 {
			faults = append(faults, RowFault{Line: line, Reason: "unparseable total_updates"})
			continue
		}

		agg := model.DistrictAggregate{
			DistrictID:   id,
			TotalHolders: holders,
			TotalUpdates: updates,
		}
		if demo := field(row, "total_demographic_updates"); demo != "" {
			if v, err := strconv.Atoi(demo); err == nil && v >= 0 {
				agg.TotalDemographicUpdates = v
			}
		}
		if raw := field(row, "last_update_date"); raw != "" {
			if t, ok := parseDate(raw); ok {
				agg.LastUpdateDate = &t
			}
			// Unparseable dates stay absent; the deriver imputes them.
		}

		aggs = append(aggs, agg)
	}

	return aggs, faults, nil
}
