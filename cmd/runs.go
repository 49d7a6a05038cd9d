package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aadhaar-netra/netra-cli/internal/model"
	"github.com/aadhaar-netra/netra-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted scoring runs",
	Long:  "Commands for listing and viewing scoring runs recorded with --persist.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs districts --

var runsDistrictsCmd = &cobra.Command{
	Use:   "districts <run-id>",
	Short: "Show a run's ranked districts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		districts, err := st.ListDistricts(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "runs districts")
		}

		if len(districts) == 0 {
			fmt.Fprintln(os.Stderr, "No districts found.")
			return nil
		}

		formatDistrictsList(os.Stdout, districts)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsDistrictsCmd.Flags().Int("limit", 0, "max number of districts to display (0 = all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDistrictsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tREF_DATE\tDISTRICTS\tTOP_DISTRICT\tTOP_CPS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t---------\t------------\t-------\t-------")

	for _, r := range runs {
		districts := ""
		topDistrict := ""
		topCPS := ""
		if r.Result != nil {
			districts = fmt.Sprintf("%d", r.Result.Districts)
			topDistrict = r.Result.TopDistrictID
			topCPS = fmt.Sprintf("%.2f", r.Result.TopCPS)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.ReferenceDate.Format("2006-01-02"),
			districts,
			topDistrict,
			topCPS,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatDistrictsList writes a tabular ranked district list to w.
func formatDistrictsList(out io.Writer, districts []model.ScoredDistrict) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tDISTRICT\tCPS\tBSI\tTIER\tCAMP\tWINDOW")
	_, _ = fmt.Fprintln(w, "----\t--------\t---\t---\t----\t----\t------")

	for i, d := range districts {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\t%.4f\t%d\t%s\t%s\n",
			i+1,
			d.Aggregate.DistrictID,
			d.CPS,
			d.BSI,
			int(d.Tier),
			d.Strategy.CampType,
			d.Strategy.FrequencyWindow,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
