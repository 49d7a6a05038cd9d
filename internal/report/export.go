// Package report serializes scored runs to the tabular files government
// reviewers consume: the full ranked table, the top-N shortlist, the audit
// trail, and a run metadata summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/ingest"
	"github.com/aadhaar-netra/netra-cli/internal/model"
	"github.com/aadhaar-netra/netra-cli/internal/pipeline"
)

// rankedHeader is the column layout of the ranked district tables.
var rankedHeader = []string{
	"rank",
	"district_id",
	"total_holders",
	"total_updates",
	"last_update_date",
	"days_since_last_update",
	"coverage_gap",
	"update_consistency",
	"low_frequency",
	"bsi",
	"cps",
	"tier",
	"tier_label",
	"camp_type",
	"frequency_window",
	"suitability",
	"reasoning",
}

// Writer exports one run's outputs into a directory.
type Writer struct {
	outputDir string
	topN      int
}

// NewWriter creates a report writer. topN bounds the shortlist export.
func NewWriter(outputDir string, topN int) *Writer {
	return &Writer{outputDir: outputDir, topN: topN}
}

// WriteAll exports the ranked table, the top-N shortlist, the audit trail,
// and metadata. Returns the paths written.
func (w *Writer) WriteAll(res *pipeline.Result, meta *ingest.Metadata) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", w.outputDir)
	}

	ranked := filepath.Join(w.outputDir, "final_ranked_districts.csv")
	if err := WriteRankedCSV(ranked, res.Districts); err != nil {
		return nil, err
	}

	top := res.Districts
	if w.topN > 0 && w.topN < len(top) {
		top = top[:w.topN]
	}
	shortlist := filepath.Join(w.outputDir, fmt.Sprintf("top_%d_priority_districts.csv", w.topN))
	if err := WriteRankedCSV(shortlist, top); err != nil {
		return nil, err
	}

	auditPath := filepath.Join(w.outputDir, "audit_events.csv")
	if err := WriteAuditCSV(auditPath, res.Audit); err != nil {
		return nil, err
	}

	metaPath := filepath.Join(w.outputDir, "metadata.json")
	if err := writeMetadataJSON(metaPath, res, meta); err != nil {
		return nil, err
	}

	paths := []string{ranked, shortlist, auditPath, metaPath}
	zap.L().Info("report written",
		zap.String("dir", w.outputDir),
		zap.Int("districts", len(res.Districts)),
		zap.Strings("files", paths),
	)
	return paths, nil
}

// WriteRankedCSV writes districts in their ranked order.
func WriteRankedCSV(path string, districts []model.ScoredDistrict) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	cw := csv.NewWriter(f)
	if err := cw.Write(rankedHeader); err != nil {
		return eris.Wrap(err, "report: write header")
	}

	for i, d := range districts {
		lastUpdate := ""
		if d.Aggregate.LastUpdateDate != nil {
			lastUpdate = d.Aggregate.LastUpdateDate.Format("2006-01-02")
		}
		row := []string{
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
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush")
}

// WriteAuditCSV writes the run's audit trail.
func WriteAuditCSV(path string, events []pipeline.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"district_id", "feature", "kind", "detail", "value"}); err != nil {
		return eris.Wrap(err, "report: write audit header")
	}
	for _, e := range events {
		row := []string{e.DistrictID, string(e.Feature), string(e.Kind), e.Detail, fmt.Sprintf("%.4f", e.Value)}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write audit row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush audit")
}

// runMetadata is the metadata.json payload.
type runMetadata struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	ReferenceDate string           `json:"reference_date"`
	Districts     int              `json:"districts"`
	TierCounts    map[string]int   `json:"tier_counts"`
	AuditEvents   int              `json:"audit_events"`
	Ingest        *ingest.Metadata `json:"ingest,omitempty"`
}

func writeMetadataJSON(path string, res *pipeline.Result, meta *ingest.Metadata) error {
	tierCounts := make(map[string]int)
	for _, d := range res.Districts {
		tierCounts[fmt.Sprintf("tier_%d", int(d.Tier))]++
	}

	payload := runMetadata{
		GeneratedAt:   time.Now().UTC(),
		ReferenceDate: res.ReferenceDate.Format("2006-01-02"),
		Districts:     len(res.Districts),
		TierCounts:    tierCounts,
		AuditEvents:   len(res.Audit),
		Ingest:        meta,
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal metadata")
	}
	return eris.Wrapf(os.WriteFile(path, b, 0o644), "report: write %s", path)
}
