package main

import (
	"github.com/spf13/cobra"

	"github.com/aadhaar-netra/netra-cli/internal/mockdata"
)

var (
	mockOut       string
	mockDistricts int
	mockRecords   int
	mockSeed      int64
	mockRefDate   string
)

var mockdataCmd = &cobra.Command{
	Use:   "mockdata",
	Short: "Generate a synthetic raw extract",
	Long:  "Writes a deterministic synthetic identity extract for demos and local testing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := resolveReferenceDate(mockRefDate)
		if err != nil {
			return err
		}

		opts := mockdata.DefaultOptions(ref.Time())
		opts.Districts = mockDistricts
		opts.RecordsPerDistrict = mockRecords
		opts.Seed = mockSeed
		return mockdata.Generate(mockOut, opts)
	},
}

func init() {
	mockdataCmd.Flags().StringVar(&mockOut, "out", "full_mock_data.csv", "output CSV path")
	mockdataCmd.Flags().IntVar(&mockDistricts, "districts", 50, "number of districts")
	mockdataCmd.Flags().IntVar(&mockRecords, "records", 20, "records per district")
	mockdataCmd.Flags().Int64Var(&mockSeed, "seed", 1, "random seed (same seed gives identical output)")
	mockdataCmd.Flags().StringVar(&mockRefDate, "reference-date", "", "anchor date for generated update dates")
	rootCmd.AddCommand(mockdataCmd)
}
