package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/ingest"
	"github.com/aadhaar-netra/netra-cli/internal/model"
	"github.com/aadhaar-netra/netra-cli/internal/pipeline"
	"github.com/aadhaar-netra/netra-cli/internal/report"
)

var (
	runInput   string
	runRefDate string
	runOutDir  string
	runTopN    int
	runXLSX    bool
	runPersist bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score a raw identity extract end to end",
	Long:  "Ingests a raw record-level CSV, aggregates per district, scores every district, and writes the ranked reports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		loaded, err := ingest.LoadRecordsCSV(ctx, runInput)
		if err != nil {
			return err
		}

		ref, err := resolveReferenceDate(runRefDate)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg.Scoring)
		if err != nil {
			return err
		}

		res, err := p.RunRecords(ctx, ref, loaded.Records)
		if err != nil {
			return err
		}

		summary := buildRunResult(res, loaded.Meta.Malformed)

		if runPersist {
			if err := persistRun(cmd, res, summary); err != nil {
				return err
			}
		}

		outDir := runOutDir
		if outDir == "" {
			outDir = cfg.Report.OutputDir
		}
		topN := runTopN
		if topN == 0 {
			topN = cfg.Report.TopN
		}

		if _, err := report.NewWriter(outDir, topN).WriteAll(res, &loaded.Meta); err != nil {
			return err
		}
		if runXLSX || cfg.Report.XLSX {
			if err := report.WriteWorkbookXLSX(filepath.Join(outDir, "priority_report.xlsx"), res); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// resolveReferenceDate resolves the run's reference date, letting the flag
// override the configured value.
func resolveReferenceDate(flag string) (pipeline.ReferenceDate, error) {
	scoring := cfg.Scoring
	if flag != "" {
		scoring.ReferenceDate = flag
	}
	t, err := scoring.ResolveReferenceDate(time.Now())
	if err != nil {
		return pipeline.ReferenceDate{}, err
	}
	return pipeline.NewReferenceDate(t), nil
}

// buildRunResult summarizes a scored run for persistence and stdout.
func buildRunResult(res *pipeline.Result, malformed int) *model.RunResult {
	summary := &model.RunResult{
		Districts:     len(res.Districts),
		TierCounts:    make(map[int]int),
		AuditEvents:   len(res.Audit),
		MalformedRows: malformed,
	}

	var totalCPS float64
	for _, d := range res.Districts {
		summary.TierCounts[int(d.Tier)]++
		totalCPS += d.CPS
	}
	if len(res.Districts) > 0 {
		summary.TopDistrictID = res.Districts[0].Aggregate.DistrictID
		summary.TopCPS = res.Districts[0].CPS
		summary.MeanCPS = totalCPS / float64(len(res.Districts))
	}
	return summary
}

// persistRun records the run and its ranked districts in the store.
func persistRun(cmd *cobra.Command, res *pipeline.Result, summary *model.RunResult) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, model.Run{
		ReferenceDate: res.ReferenceDate,
		InputPath:     runInput,
	})
	if err != nil {
		return err
	}

	if err := st.InsertDistricts(ctx, run.ID, res.Districts); err != nil {
		if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("mark run failed", zap.Error(failErr))
		}
		return eris.Wrap(err, "persist districts")
	}
	if err := st.CompleteRun(ctx, run.ID, summary); err != nil {
		return err
	}

	zap.L().Info("run persisted", zap.String("run_id", run.ID))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "raw identity extract CSV (required)")
	runCmd.Flags().StringVar(&runRefDate, "reference-date", "", "reference date YYYY-MM-DD (default from config, else today)")
	runCmd.Flags().StringVar(&runOutDir, "output-dir", "", "report output directory (default from config)")
	runCmd.Flags().IntVar(&runTopN, "top-n", 0, "shortlist size (default from config)")
	runCmd.Flags().BoolVar(&runXLSX, "xlsx", false, "also write the XLSX workbook")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "record the run in the store")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
