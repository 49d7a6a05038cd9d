// Package ingest loads and validates raw identity extracts and
// pre-aggregated district tables. Record-level faults are flagged and
// excluded from counts; only a broken schema aborts a load.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// requiredColumns is the raw extract schema. Order-free; extra columns are
// ignored.
var requiredColumns = []string{
	"district_id",
	"aadhaar_id",
	"biometric_update_flag",
	"demographic_update_flag",
	"last_update_date",
}

// dateLayouts are the accepted update-date formats. Anything else is
// coerced to absent, never a fatal error.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RowFault flags one excluded record.
type RowFault struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Metadata summarizes a load for the audit log.
type Metadata struct {
	Rows         int        `json:"rows"`
	Valid        int        `json:"valid"`
	Malformed    int        `json:"malformed"`
	CoercedDates int        `json:"coerced_dates"`
	DateMin      *time.Time `json:"date_min,omitempty"`
	DateMax      *time.Time `json:"date_max,omitempty"`
}

// LoadResult is a validated raw extract. Holder identifiers inside Records
// exist for aggregation only and must never be written to any output.
type LoadResult struct {
	Records []model.RawIdentityRecord `json:"-"`
	Faults  []RowFault                `json:"faults"`
	Meta    Metadata                  `json:"metadata"`
}

// LoadRecordsCSV reads a raw identity CSV, validates its schema, flags
// malformed rows, and returns the surviving records with load metadata.
func LoadRecordsCSV(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	res, err := loadRecords(ctx, f)
	if err != nil {
		return nil, err
	}

	zap.L().Info("ingestion complete",
		zap.String("path", path),
		zap.Int("rows", res.Meta.Rows),
		zap.Int("valid", res.Meta.Valid),
		zap.Int("malformed", res.Meta.Malformed),
		zap.Int("coerced_dates", res.Meta.CoercedDates),
	)
	return res, nil
}

func loadRecords(ctx context.Context, r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read header")
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{}
	line := 1
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read row %d", line+1)
		}
		line++
		res.Meta.Rows++

		rec, fault, coerced := parseRow(row, cols, line)
		if fault != nil {
			res.Faults = append(res.Faults, *fault)
			res.Meta.Malformed++
			continue
		}
		if coerced {
			res.Meta.CoercedDates++
		}
		if rec.UpdateDate != nil {
			if res.Meta.DateMin == nil || rec.UpdateDate.Before(*res.Meta.DateMin) {
				d := *rec.UpdateDate
				res.Meta.DateMin = &d
			}
			if res.Meta.DateMax == nil || rec.UpdateDate.After(*res.Meta.DateMax) {
				d := *rec.UpdateDate
				res.Meta.DateMax = &d
			}
		}
		res.Meta.Valid++
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// columnIndex validates the schema and maps column names to positions.
// Missing required columns are fatal: without them no row can be trusted.
func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("ingest: schema validation failed, missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow converts one CSV row. A missing district or holder identifier
// excludes the row; an unparseable date only coerces it to absent.
func parseRow(row []string, cols map[string]int, line int) (rec model.RawIdentityRecord, fault *RowFault, coercedDate bool) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	districtID := field("district_id")
	holderID := field("aadhaar_id")
	if districtID == "" || holderID == "" {
		return rec, &RowFault{Line: line, Reason: "missing district or holder identifier"}, false
	}

	bio := parseFlag(field("biometric_update_flag"))
	demo := parseFlag(field("demographic_update_flag"))

	var updateDate *time.Time
	if raw := field("last_update_date"); raw != "" {
		if t, ok := parseDate(raw); ok {
			updateDate = &t
		} else {
			coercedDate = true
		}
	}

	category := model.CategoryEnrolment
	switch {
	case bio:
		category = model.CategoryBiometric
	case demo:
		category = model.CategoryDemographic
	}

	return model.RawIdentityRecord{
		DistrictID:        districtID,
		HolderID:          holderID,
		Category:          category,
		BiometricUpdate:   bio,
		DemographicUpdate: demo,
		UpdateDate:        updateDate,
	}, nil, coercedDate
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Summary renders the metadata as a short human-readable block for the
// ingest dry-run command.
func (m Metadata) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\nvalid: %d\nmalformed: %d\ncoerced dates: %d\n", m.Rows, m.Valid, m.Malformed, m.CoercedDates)
	if m.DateMin != nil && m.DateMax != nil {
		fmt.Fprintf(&b, "date range: %s to %s\n", m.DateMin.Format("2006-01-02"), m.DateMax.Format("2006-01-02"))
	} else {
		b.WriteString("date range: no valid dates\n")
	}
	return b.String()
}
