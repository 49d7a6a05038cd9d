package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aadhaar-netra/netra-cli/internal/ingest"
)

var (
	ingestInput string
	ingestJSON  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Validate a raw extract without scoring it",
	Long:  "Dry-run ingestion: checks the schema, flags malformed rows, and prints load metadata. No scoring, no output files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := ingest.LoadRecordsCSV(cmd.Context(), ingestInput)
		if err != nil {
			return err
		}

		if ingestJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(loaded)
		}

		fmt.Println(loaded.Meta.Summary())
		for _, f := range loaded.Faults {
			fmt.Printf("  line %d: %s\n", f.Line, f.Reason)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "raw identity extract CSV (required)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print metadata and faults as JSON")
	_ = ingestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ingestCmd)
}
