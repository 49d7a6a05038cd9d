package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/ingest"
	"github.com/aadhaar-netra/netra-cli/internal/model"
	"github.com/aadhaar-netra/netra-cli/internal/pipeline"
	"github.com/aadhaar-netra/netra-cli/internal/report"
)

var (
	scoreInput   string
	scoreRefDate string
	scoreOutDir  string
	scoreTopN    int
	scoreXLSX    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a pre-aggregated district table",
	Long:  "Scores district aggregates supplied directly (CSV or XLSX), skipping record-level aggregation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		aggs, faults, err := readAggregates(cmd, scoreInput)
		if err != nil {
			return err
		}
		if len(faults) > 0 {
			zap.L().Warn("rows excluded from aggregate input", zap.Int("count", len(faults)))
		}

		ref, err := resolveReferenceDate(scoreRefDate)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg.Scoring)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx, ref, aggs)
		if err != nil {
			return err
		}

		outDir := scoreOutDir
		if outDir == "" {
			outDir = cfg.Report.OutputDir
		}
		topN := scoreTopN
		if topN == 0 {
			topN = cfg.Report.TopN
		}

		if _, err := report.NewWriter(outDir, topN).WriteAll(res, nil); err != nil {
			return err
		}
		if scoreXLSX || cfg.Report.XLSX {
			if err := report.WriteWorkbookXLSX(filepath.Join(outDir, "priority_report.xlsx"), res); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(buildRunResult(res, len(faults)))
	},
}

func readAggregates(cmd *cobra.Command, path string) ([]model.DistrictAggregate, []ingest.RowFault, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ingest.ReadAggregatesXLSX(path)
	}
	return ingest.ReadAggregatesCSV(cmd.Context(), path)
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "district aggregate table, CSV or XLSX (required)")
	scoreCmd.Flags().StringVar(&scoreRefDate, "reference-date", "", "reference date YYYY-MM-DD (default from config, else today)")
	scoreCmd.Flags().StringVar(&scoreOutDir, "output-dir", "", "report output directory (default from config)")
	scoreCmd.Flags().IntVar(&scoreTopN, "top-n", 0, "shortlist size (default from config)")
	scoreCmd.Flags().BoolVar(&scoreXLSX, "xlsx", false, "also write the XLSX workbook")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
